package judge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/shlex"
)

// ErrUnsupportedLanguage is returned for language tags outside the registry.
// Unsupported code is never executed as another language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageSpec describes how to compile and run one language. Command
// templates may reference {source} and {binary}; both are resolved relative
// to the sandbox working directory.
type LanguageSpec struct {
	Language   models.Language
	SourceFile string
	BinaryFile string
	CompileCmd string
	RunCmd     string
	// LimitAddressSpace enables the ulimit -v wrapper for the run command.
	// The JVM allocates large address-space reservations up front, so it is
	// off for Java.
	LimitAddressSpace bool
}

func (s LanguageSpec) NeedsCompile() bool {
	return s.CompileCmd != ""
}

func (s LanguageSpec) expand(tpl string) string {
	out := strings.ReplaceAll(tpl, "{source}", s.SourceFile)
	return strings.ReplaceAll(out, "{binary}", s.BinaryFile)
}

// CompileArgs returns the compile command as an argv slice.
func (s LanguageSpec) CompileArgs() ([]string, error) {
	args, err := shlex.Split(s.expand(s.CompileCmd))
	if err != nil {
		return nil, fmt.Errorf("invalid compile command for %s: %w", s.Language, err)
	}
	return args, nil
}

// RunArgs returns the run command as an argv slice.
func (s LanguageSpec) RunArgs() ([]string, error) {
	args, err := shlex.Split(s.expand(s.RunCmd))
	if err != nil {
		return nil, fmt.Errorf("invalid run command for %s: %w", s.Language, err)
	}
	return args, nil
}

// Registry maps language tags to their specs. New languages are added with
// Register; pipeline logic never branches on the tag itself.
type Registry struct {
	specs map[models.Language]LanguageSpec
}

func NewRegistry() *Registry {
	r := &Registry{specs: make(map[models.Language]LanguageSpec)}

	r.Register(LanguageSpec{
		Language:          models.LanguageC,
		SourceFile:        "main.c",
		BinaryFile:        "main",
		CompileCmd:        "gcc -O2 {source} -o {binary}",
		RunCmd:            "./{binary}",
		LimitAddressSpace: true,
	})
	r.Register(LanguageSpec{
		Language:          models.LanguageCPP,
		SourceFile:        "main.cpp",
		BinaryFile:        "main",
		CompileCmd:        "g++ -std=c++17 -O2 {source} -o {binary}",
		RunCmd:            "./{binary}",
		LimitAddressSpace: true,
	})
	r.Register(LanguageSpec{
		Language:   models.LanguageJava,
		SourceFile: "Main.java",
		CompileCmd: "javac {source}",
		RunCmd:     "java Main",
	})
	r.Register(LanguageSpec{
		Language:          models.LanguagePython,
		SourceFile:        "main.py",
		RunCmd:            "python3 {source}",
		LimitAddressSpace: true,
	})

	return r
}

func (r *Registry) Register(spec LanguageSpec) {
	r.specs[spec.Language] = spec
}

func (r *Registry) Lookup(lang models.Language) (LanguageSpec, error) {
	spec, ok := r.specs[lang]
	if !ok {
		return LanguageSpec{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return spec, nil
}
