package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedJudgeable(store *fakeStore, testcaseCount int) *models.Submission {
	problem := &models.Problem{
		ID:            uuid.New(),
		Title:         "A + B",
		TimeLimitMs:   1000,
		MemoryLimitMb: 256,
	}
	testcases := make([]models.Testcase, 0, testcaseCount)
	for i := 0; i < testcaseCount; i++ {
		testcases = append(testcases, models.Testcase{
			ID:        uuid.New(),
			ProblemID: problem.ID,
			Input:     "1 2\n",
			Output:    "3\n",
			TestOrder: int32(i + 1),
		})
	}
	store.addProblem(problem, testcases)

	submission := &models.Submission{
		ID:        uuid.New(),
		ProblemID: problem.ID,
		UserID:    uuid.New(),
		Code:      "int main() { return 0; }",
		Language:  models.LanguageC,
		Status:    models.SubmissionStatusPending,
	}
	store.addSubmission(submission)
	return submission
}

func TestJudgeAccepted(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 3)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 12, MemoryKB: 2048},
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 40, MemoryKB: 1024},
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 25, MemoryKB: 4096},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusAccepted, verdict.Status)
	assert.Equal(t, int32(40), verdict.ExecutionTimeMs)
	assert.Equal(t, int32(4096), verdict.MemoryUsedKb)
	assert.Equal(t, 3, executor.runCount())

	stored, err := store.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusAccepted, stored.Status)
	assert.Equal(t, int32(40), stored.ExecutionTime)
	assert.Equal(t, int64(1), store.acceptedCount(sub.ProblemID))
}

func TestJudgeAcceptedCountsProblemOnce(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunOK, Stdout: "3\n"},
		{Outcome: RunOK, Stdout: "3\n"},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	pipeline.Judge(context.Background(), sub.ID)
	require.NoError(t, store.ResetForRejudge(context.Background(), sub.ID))
	pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, int64(1), store.acceptedCount(sub.ProblemID))
}

func TestJudgeStopsAtFirstFailingTestcase(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 3)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 10},
		{Outcome: RunOK, Stdout: "4\n", TimeMs: 15},
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 20},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusWrongAnswer, verdict.Status)
	assert.Equal(t, "Wrong Answer on testcase 2", verdict.Message)
	assert.Equal(t, 2, executor.runCount(), "third testcase must never run")
}

func TestJudgeTimeLimitExceededReportsLimit(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 2)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunOK, Stdout: "3\n", TimeMs: 30},
		{Outcome: RunTimeout, TimeMs: 1000},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusTimeLimitExceeded, verdict.Status)
	assert.Equal(t, int32(1000), verdict.ExecutionTimeMs, "TLE reports the configured limit")
	assert.Equal(t, "Time limit exceeded (>1000ms)", verdict.Message)
}

func TestJudgeMemoryLimitExceeded(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunMemoryExceeded, TimeMs: 55, MemoryKB: 300 * 1024, Signal: "killed"},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusMemoryLimitExceeded, verdict.Status)
	assert.Equal(t, int32(300*1024), verdict.MemoryUsedKb)
	assert.Contains(t, verdict.Message, "Memory limit exceeded (>256MB)")
}

func TestJudgeRuntimeErrorDiagnostic(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{results: []RunResult{
		{Outcome: RunRuntimeError, ExitCode: 139, Signal: "segmentation fault", Stderr: "boom\n"},
	}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusRuntimeError, verdict.Status)
	assert.Equal(t, "Runtime error on testcase 1: terminated by segmentation fault: boom", verdict.Message)
}

func TestJudgeCompileError(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{compileErr: &CompileError{Output: "main.c:1: error: expected ';'"}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusCompileError, verdict.Status)
	assert.Equal(t, "main.c:1: error: expected ';'", verdict.Message)
	assert.Equal(t, 0, executor.runCount())
}

func TestJudgeCompileOutputTruncated(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{compileErr: &CompileError{Output: strings.Repeat("e", maxDiagnosticBytes+100)}}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusCompileError, verdict.Status)
	assert.Len(t, verdict.Message, maxDiagnosticBytes)
}

func TestJudgeUnsupportedLanguage(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{compileErr: ErrUnsupportedLanguage}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusSystemError, verdict.Status)
	assert.Equal(t, "Unsupported language: c", verdict.Message)
	assert.False(t, verdict.Retryable, "a bad language tag does not go away on retry")
}

func TestJudgeNoTestcasesNeverEntersRunning(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 0)
	executor := &scriptedExecutor{}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusSystemError, verdict.Status)
	assert.Equal(t, "No testcases found for this problem", verdict.Message)
	assert.NotContains(t, store.statusHistory(sub.ID), models.SubmissionStatusRunning)
	assert.Equal(t, 0, executor.runCount())
}

func TestJudgeMissingProblemNeverEntersRunning(t *testing.T) {
	store := newFakeStore()
	sub := &models.Submission{
		ID:        uuid.New(),
		ProblemID: uuid.New(),
		Code:      "print(1)",
		Language:  models.LanguagePython,
		Status:    models.SubmissionStatusPending,
	}
	store.addSubmission(sub)
	pipeline := NewPipeline(store, store, store, &scriptedExecutor{}, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusSystemError, verdict.Status)
	assert.Equal(t, "Problem not found", verdict.Message)
	assert.NotContains(t, store.statusHistory(sub.ID), models.SubmissionStatusRunning)
}

func TestJudgeRetryableFailureLeavesStatusNonTerminal(t *testing.T) {
	store := newFakeStore()
	sub := seedJudgeable(store, 1)
	executor := &scriptedExecutor{runErr: errors.New("sandbox base dir vanished")}
	pipeline := NewPipeline(store, store, store, executor, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), sub.ID)

	assert.Equal(t, models.SubmissionStatusSystemError, verdict.Status)
	assert.True(t, verdict.Retryable)

	// The caller may retry, so no terminal status is written yet.
	stored, err := store.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusRunning, stored.Status)
	assert.NotContains(t, store.statusHistory(sub.ID), models.SubmissionStatusSystemError)
}

func TestJudgeMissingSubmission(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, store, store, &scriptedExecutor{}, zap.NewNop())

	verdict := pipeline.Judge(context.Background(), uuid.New())

	assert.Equal(t, models.SubmissionStatusSystemError, verdict.Status)
	assert.Equal(t, "Submission not found", verdict.Message)
	assert.False(t, verdict.Retryable)
}
