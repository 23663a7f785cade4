// Package notify publishes judging results over Redis pub/sub so that the
// surrounding system can observe fire-and-forget judge calls completing.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type VerdictUpdate struct {
	SubmissionID  uuid.UUID               `json:"submission_id"`
	ProblemID     uuid.UUID               `json:"problem_id"`
	UserID        uuid.UUID               `json:"user_id"`
	Status        models.SubmissionStatus `json:"status"`
	ExecutionTime int32                   `json:"execution_time"`
	MemoryUsed    int32                   `json:"memory_used"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	JudgedAt      time.Time               `json:"judged_at"`
}

type LeaderboardUpdate struct {
	ContestID uuid.UUID                   `json:"contest_id"`
	Standings []models.ContestParticipant `json:"standings"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func verdictChannel(problemID uuid.UUID) string {
	return fmt.Sprintf("verdicts:%s", problemID)
}

func leaderboardChannel(contestID uuid.UUID) string {
	return fmt.Sprintf("leaderboard:%s", contestID)
}

func (p *Publisher) PublishVerdict(ctx context.Context, submission *models.Submission) error {
	update := VerdictUpdate{
		SubmissionID:  submission.ID,
		ProblemID:     submission.ProblemID,
		UserID:        submission.UserID,
		Status:        submission.Status,
		ExecutionTime: submission.ExecutionTime,
		MemoryUsed:    submission.MemoryUsed,
		ErrorMessage:  submission.ErrorMessage,
		JudgedAt:      time.Now(),
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict update: %w", err)
	}

	return p.client.Publish(ctx, verdictChannel(submission.ProblemID), data).Err()
}

func (p *Publisher) PublishLeaderboard(ctx context.Context, contestID uuid.UUID, standings []models.ContestParticipant) error {
	update := LeaderboardUpdate{
		ContestID: contestID,
		Standings: standings,
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard update: %w", err)
	}

	return p.client.Publish(ctx, leaderboardChannel(contestID), data).Err()
}

func (p *Publisher) SubscribeToVerdicts(ctx context.Context, problemID uuid.UUID) *redis.PubSub {
	return p.client.Subscribe(ctx, verdictChannel(problemID))
}

func (p *Publisher) SubscribeToLeaderboard(ctx context.Context, contestID uuid.UUID) *redis.PubSub {
	return p.client.Subscribe(ctx, leaderboardChannel(contestID))
}
