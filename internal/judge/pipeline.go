// Package judge implements the judging core: sandboxed compilation and
// execution of submissions, the verdict state machine, and the dispatcher
// that bounds concurrent judging.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxDiagnosticBytes = 4096

// SubmissionStore is the persistence surface the judging core needs for
// submissions. Implemented by database.SubmissionRepository.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) error
	FinishVerdict(ctx context.Context, id uuid.UUID, status models.SubmissionStatus, executionTimeMs, memoryUsedKb int32, errorMessage string) error
	FinishAccepted(ctx context.Context, id, problemID uuid.UUID, executionTimeMs, memoryUsedKb int32) error
	ResetForRejudge(ctx context.Context, id uuid.UUID) error
}

// ProblemStore is implemented by database.ProblemRepository.
type ProblemStore interface {
	GetProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error)
}

// TestcaseStore is implemented by database.TestcaseRepository.
type TestcaseStore interface {
	GetTestcasesByProblem(ctx context.Context, problemID uuid.UUID) ([]models.Testcase, error)
}

// Executor is the sandbox contract the pipeline judges through.
type Executor interface {
	Compile(ctx context.Context, language models.Language, code string) (*Artifact, error)
	Run(ctx context.Context, artifact *Artifact, input string, limits Limits) (RunResult, error)
}

// Verdict is the outcome of one pipeline run. Retryable marks verdicts
// attributable to the judging infrastructure rather than the submission;
// the dispatcher may re-run those a bounded number of times.
type Verdict struct {
	Status          models.SubmissionStatus
	ExecutionTimeMs int32
	MemoryUsedKb    int32
	Message         string
	Retryable       bool
}

// Pipeline owns the submission state machine:
//
//	PENDING -> RUNNING -> {ACCEPTED, WRONG_ANSWER, TIME_LIMIT_EXCEEDED,
//	                       MEMORY_LIMIT_EXCEEDED, COMPILE_ERROR,
//	                       RUNTIME_ERROR, SYSTEM_ERROR}
//
// Testcases run sequentially in their fixed order and judging stops at the
// first failure.
type Pipeline struct {
	submissions SubmissionStore
	problems    ProblemStore
	testcases   TestcaseStore
	executor    Executor
	log         *zap.Logger
}

func NewPipeline(
	submissions SubmissionStore,
	problems ProblemStore,
	testcases TestcaseStore,
	executor Executor,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		submissions: submissions,
		problems:    problems,
		testcases:   testcases,
		executor:    executor,
		log:         log,
	}
}

// Judge runs one submission through the state machine and persists the
// terminal verdict. It never panics and never returns without a verdict.
func (p *Pipeline) Judge(ctx context.Context, submissionID uuid.UUID) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("judge pipeline panic",
				zap.String("submission_id", submissionID.String()),
				zap.Any("panic", r))
			verdict = p.systemError(ctx, submissionID, fmt.Sprintf("System error: internal panic: %v", r), false)
		}
	}()

	submission, err := p.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
	}
	if submission == nil {
		return p.systemError(ctx, submissionID, "Submission not found", false)
	}

	problem, err := p.problems.GetProblemByID(ctx, submission.ProblemID)
	if err != nil {
		return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
	}
	if problem == nil {
		// Configuration error: the pipeline never enters RUNNING.
		return p.systemError(ctx, submissionID, "Problem not found", false)
	}

	testcases, err := p.testcases.GetTestcasesByProblem(ctx, problem.ID)
	if err != nil {
		return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
	}
	if len(testcases) == 0 {
		return p.systemError(ctx, submissionID, "No testcases found for this problem", false)
	}

	if err := p.submissions.UpdateStatus(ctx, submissionID, models.SubmissionStatusRunning); err != nil {
		return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
	}

	artifact, err := p.executor.Compile(ctx, submission.Language, submission.Code)
	if err != nil {
		var compileErr *CompileError
		switch {
		case errors.As(err, &compileErr):
			return p.finish(ctx, submissionID, Verdict{
				Status:  models.SubmissionStatusCompileError,
				Message: truncate(compileErr.Output),
			})
		case errors.Is(err, ErrUnsupportedLanguage):
			return p.systemError(ctx, submissionID,
				fmt.Sprintf("Unsupported language: %s", submission.Language), false)
		default:
			return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
		}
	}
	defer artifact.Close()

	limits := Limits{
		TimeLimitMs:   problem.TimeLimitMs,
		MemoryLimitMb: problem.MemoryLimitMb,
	}

	var maxTimeMs, maxMemoryKb int32
	for _, tc := range testcases {
		result, err := p.executor.Run(ctx, artifact, tc.Input, limits)
		if err != nil {
			return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
		}

		if result.MemoryKB > maxMemoryKb {
			maxMemoryKb = result.MemoryKB
		}

		switch result.Outcome {
		case RunTimeout:
			return p.finish(ctx, submissionID, Verdict{
				Status:          models.SubmissionStatusTimeLimitExceeded,
				ExecutionTimeMs: problem.TimeLimitMs,
				MemoryUsedKb:    maxMemoryKb,
				Message:         fmt.Sprintf("Time limit exceeded (>%dms)", problem.TimeLimitMs),
			})
		case RunMemoryExceeded:
			return p.finish(ctx, submissionID, Verdict{
				Status:          models.SubmissionStatusMemoryLimitExceeded,
				ExecutionTimeMs: maxInt32(maxTimeMs, result.TimeMs),
				MemoryUsedKb:    maxMemoryKb,
				Message:         fmt.Sprintf("Memory limit exceeded (>%dMB) on testcase %d", problem.MemoryLimitMb, tc.TestOrder),
			})
		case RunRuntimeError:
			return p.finish(ctx, submissionID, Verdict{
				Status:          models.SubmissionStatusRuntimeError,
				ExecutionTimeMs: maxInt32(maxTimeMs, result.TimeMs),
				MemoryUsedKb:    maxMemoryKb,
				Message:         runtimeDiagnostic(tc.TestOrder, result),
			})
		}

		if !Verify(result.Stdout, tc.Output) {
			return p.finish(ctx, submissionID, Verdict{
				Status:          models.SubmissionStatusWrongAnswer,
				ExecutionTimeMs: maxInt32(maxTimeMs, result.TimeMs),
				MemoryUsedKb:    maxMemoryKb,
				Message:         fmt.Sprintf("Wrong Answer on testcase %d", tc.TestOrder),
			})
		}

		if result.TimeMs > maxTimeMs {
			maxTimeMs = result.TimeMs
		}
	}

	if err := p.submissions.FinishAccepted(ctx, submissionID, problem.ID, maxTimeMs, maxMemoryKb); err != nil {
		return p.systemError(ctx, submissionID, fmt.Sprintf("System error: %v", err), true)
	}
	return Verdict{
		Status:          models.SubmissionStatusAccepted,
		ExecutionTimeMs: maxTimeMs,
		MemoryUsedKb:    maxMemoryKb,
	}
}

func (p *Pipeline) finish(ctx context.Context, id uuid.UUID, verdict Verdict) Verdict {
	err := p.submissions.FinishVerdict(ctx, id, verdict.Status,
		verdict.ExecutionTimeMs, verdict.MemoryUsedKb, verdict.Message)
	if err != nil {
		p.log.Error("failed to persist verdict",
			zap.String("submission_id", id.String()),
			zap.String("status", string(verdict.Status)),
			zap.Error(err))
		return Verdict{
			Status:    models.SubmissionStatusSystemError,
			Message:   fmt.Sprintf("System error: %v", err),
			Retryable: true,
		}
	}
	return verdict
}

func (p *Pipeline) systemError(ctx context.Context, id uuid.UUID, message string, retryable bool) Verdict {
	verdict := Verdict{
		Status:    models.SubmissionStatusSystemError,
		Message:   message,
		Retryable: retryable,
	}
	// A retryable failure is not a verdict yet: the submission stays in its
	// non-terminal status so a retry never regresses a terminal state. The
	// dispatcher writes SYSTEM_ERROR once retries are exhausted.
	if retryable {
		return verdict
	}
	if err := p.submissions.FinishVerdict(ctx, id, models.SubmissionStatusSystemError, 0, 0, message); err != nil {
		p.log.Error("failed to persist system error",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		verdict.Retryable = true
	}
	return verdict
}

func runtimeDiagnostic(testOrder int32, result RunResult) string {
	var b strings.Builder
	if result.Signal != "" {
		fmt.Fprintf(&b, "Runtime error on testcase %d: terminated by %s", testOrder, result.Signal)
	} else {
		fmt.Fprintf(&b, "Runtime error on testcase %d: exit code %d", testOrder, result.ExitCode)
	}
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return truncate(b.String())
}

func truncate(s string) string {
	if len(s) <= maxDiagnosticBytes {
		return s
	}
	return s[:maxDiagnosticBytes]
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
