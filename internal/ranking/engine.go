// Package ranking recomputes contest standings from accepted submissions.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContestStore is implemented by database.ContestRepository.
type ContestStore interface {
	GetContestProblems(ctx context.Context, contestID uuid.UUID) ([]models.ContestProblem, error)
}

// ParticipantStore is implemented by database.ParticipantRepository.
type ParticipantStore interface {
	GetParticipantsByContest(ctx context.Context, contestID uuid.UUID) ([]models.ContestParticipant, error)
	UpdateStandings(ctx context.Context, participants []models.ContestParticipant) error
}

// SubmissionStore is implemented by database.SubmissionRepository.
type SubmissionStore interface {
	AcceptedProblemIDs(ctx context.Context, userID uuid.UUID, problemIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Engine recomputes scores and ranks for a contest. Recomputation is
// idempotent and serialized per contest: concurrent calls for the same
// contest never interleave their writes.
type Engine struct {
	contests     ContestStore
	participants ParticipantStore
	submissions  SubmissionStore
	log          *zap.Logger

	mu           sync.Mutex
	contestLocks map[uuid.UUID]*sync.Mutex
}

func NewEngine(
	contests ContestStore,
	participants ParticipantStore,
	submissions SubmissionStore,
	log *zap.Logger,
) *Engine {
	return &Engine{
		contests:     contests,
		participants: participants,
		submissions:  submissions,
		log:          log,
		contestLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Recompute rebuilds the contest's standings: each participant scores the
// point value of every contest problem they have at least one accepted
// submission for (resubmissions after acceptance add nothing), participants
// are ordered by score descending, and ranks follow standard competition
// ranking (tied scores share a rank, the next distinct score resumes at its
// 1-based position). The updated standings are persisted and returned.
func (e *Engine) Recompute(ctx context.Context, contestID uuid.UUID) ([]models.ContestParticipant, error) {
	lock := e.lockFor(contestID)
	lock.Lock()
	defer lock.Unlock()

	contestProblems, err := e.contests.GetContestProblems(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contest problems: %w", err)
	}

	scoreByProblem := make(map[uuid.UUID]int32, len(contestProblems))
	problemIDs := make([]uuid.UUID, 0, len(contestProblems))
	for _, cp := range contestProblems {
		scoreByProblem[cp.ProblemID] = cp.Score
		problemIDs = append(problemIDs, cp.ProblemID)
	}

	participants, err := e.participants.GetParticipantsByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, nil
	}

	for i := range participants {
		solved, err := e.submissions.AcceptedProblemIDs(ctx, participants[i].UserID, problemIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load accepted problems: %w", err)
		}
		var score int32
		for _, problemID := range solved {
			score += scoreByProblem[problemID]
		}
		participants[i].Score = score
	}

	// Deterministic order: score descending, then user id for stable ties.
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].Score != participants[j].Score {
			return participants[i].Score > participants[j].Score
		}
		return participants[i].UserID.String() < participants[j].UserID.String()
	})

	rank := int32(1)
	for i := range participants {
		if i > 0 && participants[i].Score < participants[i-1].Score {
			rank = int32(i + 1)
		}
		participants[i].Rank = rank
	}

	if err := e.participants.UpdateStandings(ctx, participants); err != nil {
		return nil, fmt.Errorf("failed to persist standings: %w", err)
	}

	e.log.Info("contest standings recomputed",
		zap.String("contest_id", contestID.String()),
		zap.Int("participants", len(participants)))

	return participants, nil
}

func (e *Engine) lockFor(contestID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.contestLocks[contestID]
	if !ok {
		lock = &sync.Mutex{}
		e.contestLocks[contestID] = lock
	}
	return lock
}
