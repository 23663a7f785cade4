package judge

import (
	"context"
	"sync"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
)

// fakeStore keeps submissions, problems and testcases in memory and records
// every status transition per submission.
type fakeStore struct {
	mu          sync.Mutex
	submissions map[uuid.UUID]*models.Submission
	problems    map[uuid.UUID]*models.Problem
	testcases   map[uuid.UUID][]models.Testcase
	transitions map[uuid.UUID][]models.SubmissionStatus
	accepted    map[uuid.UUID]int64 // problem id -> accepted counter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: make(map[uuid.UUID]*models.Submission),
		problems:    make(map[uuid.UUID]*models.Problem),
		testcases:   make(map[uuid.UUID][]models.Testcase),
		transitions: make(map[uuid.UUID][]models.SubmissionStatus),
		accepted:    make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) addSubmission(sub *models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
}

func (s *fakeStore) addProblem(p *models.Problem, testcases []models.Testcase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ID] = p
	s.testcases[p.ID] = testcases
}

func (s *fakeStore) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.submissions[id]; ok {
		sub.Status = status
	}
	s.transitions[id] = append(s.transitions[id], status)
	return nil
}

func (s *fakeStore) FinishVerdict(ctx context.Context, id uuid.UUID, status models.SubmissionStatus, executionTimeMs, memoryUsedKb int32, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.submissions[id]; ok {
		sub.Status = status
		sub.ExecutionTime = executionTimeMs
		sub.MemoryUsed = memoryUsedKb
		sub.ErrorMessage = errorMessage
	}
	s.transitions[id] = append(s.transitions[id], status)
	return nil
}

func (s *fakeStore) FinishAccepted(ctx context.Context, id, problemID uuid.UUID, executionTimeMs, memoryUsedKb int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if ok {
		sub.Status = models.SubmissionStatusAccepted
		sub.ExecutionTime = executionTimeMs
		sub.MemoryUsed = memoryUsedKb
		sub.ErrorMessage = ""
		if !sub.AcceptedCounted {
			sub.AcceptedCounted = true
			s.accepted[problemID]++
		}
	}
	s.transitions[id] = append(s.transitions[id], models.SubmissionStatusAccepted)
	return nil
}

func (s *fakeStore) ResetForRejudge(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.submissions[id]; ok {
		sub.Status = models.SubmissionStatusPending
		sub.ExecutionTime = 0
		sub.MemoryUsed = 0
		sub.ErrorMessage = ""
	}
	s.transitions[id] = append(s.transitions[id], models.SubmissionStatusPending)
	return nil
}

func (s *fakeStore) GetProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.problems[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) GetTestcasesByProblem(ctx context.Context, problemID uuid.UUID) ([]models.Testcase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testcases[problemID], nil
}

func (s *fakeStore) statusHistory(id uuid.UUID) []models.SubmissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SubmissionStatus(nil), s.transitions[id]...)
}

func (s *fakeStore) acceptedCount(problemID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted[problemID]
}

// scriptedExecutor returns one scripted result per testcase run and records
// how many runs happened.
type scriptedExecutor struct {
	mu         sync.Mutex
	compileErr error
	results    []RunResult
	runErr     error
	runs       int
}

func (e *scriptedExecutor) Compile(ctx context.Context, language models.Language, code string) (*Artifact, error) {
	if e.compileErr != nil {
		return nil, e.compileErr
	}
	return &Artifact{}, nil
}

func (e *scriptedExecutor) Run(ctx context.Context, artifact *Artifact, input string, limits Limits) (RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runErr != nil {
		e.runs++
		return RunResult{}, e.runErr
	}
	if e.runs >= len(e.results) {
		e.runs++
		return RunResult{Outcome: RunOK}, nil
	}
	result := e.results[e.runs]
	e.runs++
	return result, nil
}

func (e *scriptedExecutor) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}
