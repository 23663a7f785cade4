package judge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"go.uber.org/zap"
)

// RunOutcome classifies one program execution.
type RunOutcome int

const (
	RunOK RunOutcome = iota
	RunTimeout
	RunRuntimeError
	RunMemoryExceeded
)

type Limits struct {
	TimeLimitMs   int32
	MemoryLimitMb int32
}

type RunResult struct {
	Outcome  RunOutcome
	Stdout   string
	Stderr   string
	ExitCode int
	Signal   string
	TimeMs   int32
	MemoryKB int32
}

// CompileError is a submission-attributable compilation failure carrying the
// compiler's output.
type CompileError struct {
	Output string
}

func (e *CompileError) Error() string {
	return "compilation failed"
}

// Artifact is one compiled (or staged, for interpreted languages) submission
// inside its private working directory. Nothing is shared between artifacts.
type Artifact struct {
	spec    LanguageSpec
	workDir string
}

// Close tears down the artifact's working directory.
func (a *Artifact) Close() error {
	return os.RemoveAll(a.workDir)
}

// Sandbox compiles and runs untrusted programs. Every child runs in its own
// process group so that a timeout kills the whole tree, not just the direct
// child.
type Sandbox struct {
	baseDir        string
	compileTimeout time.Duration
	registry       *Registry
	log            *zap.Logger
}

func NewSandbox(baseDir string, compileTimeout time.Duration, registry *Registry, log *zap.Logger) *Sandbox {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Sandbox{
		baseDir:        baseDir,
		compileTimeout: compileTimeout,
		registry:       registry,
		log:            log,
	}
}

// Compile stages the source in a fresh working directory and, for compiled
// languages, runs the compiler under the sandbox's fixed compile ceiling.
// It returns *CompileError for compiler failures and ErrUnsupportedLanguage
// for unknown tags; any other error is infrastructure-attributable.
func (s *Sandbox) Compile(ctx context.Context, language models.Language, code string) (*Artifact, error) {
	spec, err := s.registry.Lookup(language)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox base directory: %w", err)
	}
	workDir, err := os.MkdirTemp(s.baseDir, "submission-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	artifact := &Artifact{spec: spec, workDir: workDir}

	sourcePath := filepath.Join(workDir, spec.SourceFile)
	if err := os.WriteFile(sourcePath, []byte(code), 0o644); err != nil {
		artifact.Close()
		return nil, fmt.Errorf("failed to write source file: %w", err)
	}

	if !spec.NeedsCompile() {
		return artifact, nil
	}

	args, err := spec.CompileArgs()
	if err != nil {
		artifact.Close()
		return nil, err
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		artifact.Close()
		return nil, fmt.Errorf("failed to start compiler: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(s.compileTimeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		if waitErr != nil {
			s.log.Debug("compilation failed",
				zap.String("language", string(language)),
				zap.String("work_dir", workDir))
			artifact.Close()
			return nil, &CompileError{Output: output.String()}
		}
	case <-timer.C:
		killProcessGroup(cmd.Process.Pid)
		<-done
		s.log.Warn("compilation timed out",
			zap.String("language", string(language)),
			zap.Duration("timeout", s.compileTimeout))
		artifact.Close()
		return nil, &CompileError{Output: "Compilation timed out"}
	case <-ctx.Done():
		killProcessGroup(cmd.Process.Pid)
		<-done
		artifact.Close()
		return nil, ctx.Err()
	}

	return artifact, nil
}

// Run executes the artifact against one input under the problem's limits.
// Classified outcomes (timeout, runtime failure, memory exhaustion) come
// back inside RunResult; a non-nil error means the sandbox itself failed.
func (s *Sandbox) Run(ctx context.Context, artifact *Artifact, input string, limits Limits) (RunResult, error) {
	args, err := artifact.spec.RunArgs()
	if err != nil {
		return RunResult{}, err
	}

	if artifact.spec.LimitAddressSpace && limits.MemoryLimitMb > 0 {
		// Address-space rlimit applied inside the shell, inherited by exec.
		// Each argv element is quoted so the shell cannot re-split it.
		memKB := int64(limits.MemoryLimitMb) * 1024
		args = []string{"sh", "-c", fmt.Sprintf("ulimit -v %d; exec %s", memKB, shellJoin(args))}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = artifact.workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("failed to start program: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(time.Duration(limits.TimeLimitMs) * time.Millisecond)
	defer timer.Stop()

	var waitErr error
	timedOut := false

	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		killProcessGroup(cmd.Process.Pid)
		<-done
	case <-ctx.Done():
		killProcessGroup(cmd.Process.Pid)
		<-done
		return RunResult{}, ctx.Err()
	}

	result := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimeMs:   int32(time.Since(start).Milliseconds()),
		MemoryKB: maxRSSKb(cmd.ProcessState),
	}

	if timedOut {
		result.Outcome = RunTimeout
		result.TimeMs = limits.TimeLimitMs
		s.log.Debug("run timed out",
			zap.String("work_dir", artifact.workDir),
			zap.Int32("time_limit_ms", limits.TimeLimitMs))
		return result, nil
	}

	if waitErr == nil {
		result.Outcome = RunOK
		return result, nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return RunResult{}, fmt.Errorf("program wait failed: %w", waitErr)
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		result.ExitCode = ws.ExitStatus()
		if ws.Signaled() {
			result.Signal = ws.Signal().String()
		}
	} else {
		result.ExitCode = exitErr.ExitCode()
	}

	if s.looksLikeMemoryKill(result, limits) {
		result.Outcome = RunMemoryExceeded
	} else {
		result.Outcome = RunRuntimeError
	}
	s.log.Debug("run exited abnormally",
		zap.String("work_dir", artifact.workDir),
		zap.Int("exit_code", result.ExitCode),
		zap.String("signal", result.Signal),
		zap.Int32("max_rss_kb", result.MemoryKB))
	return result, nil
}

// looksLikeMemoryKill decides whether an abnormal exit is plausibly the
// memory ceiling rather than an ordinary crash: a SIGKILL (OOM killer),
// the conventional 128+9 exit code, or measured peak RSS at or above the
// limit.
func (s *Sandbox) looksLikeMemoryKill(result RunResult, limits Limits) bool {
	if limits.MemoryLimitMb <= 0 {
		return false
	}
	if result.Signal == syscall.SIGKILL.String() {
		return true
	}
	if result.ExitCode == 137 {
		return true
	}
	return result.MemoryKB >= limits.MemoryLimitMb*1024
}

// shellJoin renders argv as a single-quoted sh command line. Embedded single
// quotes become the '\'' dance.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func maxRSSKb(state *os.ProcessState) int32 {
	if state == nil {
		return 0
	}
	rusage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok {
		return 0
	}
	// Maxrss is kilobytes on Linux.
	return int32(rusage.Maxrss)
}
