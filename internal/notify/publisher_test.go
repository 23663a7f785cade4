package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPublisher(client)
}

func receiveMessage(t *testing.T, sub *redis.PubSub) string {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		return msg.Payload
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return ""
	}
}

func TestPublishVerdict(t *testing.T) {
	publisher := newTestPublisher(t)
	ctx := context.Background()

	submission := &models.Submission{
		ID:            uuid.New(),
		ProblemID:     uuid.New(),
		UserID:        uuid.New(),
		Status:        models.SubmissionStatusWrongAnswer,
		ExecutionTime: 42,
		MemoryUsed:    2048,
		ErrorMessage:  "Wrong Answer on testcase 2",
	}

	sub := publisher.SubscribeToVerdicts(ctx, submission.ProblemID)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, publisher.PublishVerdict(ctx, submission))

	var update VerdictUpdate
	require.NoError(t, json.Unmarshal([]byte(receiveMessage(t, sub)), &update))
	assert.Equal(t, submission.ID, update.SubmissionID)
	assert.Equal(t, models.SubmissionStatusWrongAnswer, update.Status)
	assert.Equal(t, int32(42), update.ExecutionTime)
	assert.Equal(t, "Wrong Answer on testcase 2", update.ErrorMessage)
	assert.False(t, update.JudgedAt.IsZero())
}

func TestPublishVerdictChannelPerProblem(t *testing.T) {
	publisher := newTestPublisher(t)
	ctx := context.Background()

	watched := uuid.New()
	other := uuid.New()

	sub := publisher.SubscribeToVerdicts(ctx, watched)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, publisher.PublishVerdict(ctx, &models.Submission{
		ID:        uuid.New(),
		ProblemID: other,
		Status:    models.SubmissionStatusAccepted,
	}))
	require.NoError(t, publisher.PublishVerdict(ctx, &models.Submission{
		ID:        uuid.New(),
		ProblemID: watched,
		Status:    models.SubmissionStatusAccepted,
	}))

	var update VerdictUpdate
	require.NoError(t, json.Unmarshal([]byte(receiveMessage(t, sub)), &update))
	assert.Equal(t, watched, update.ProblemID, "only the watched problem's verdicts arrive")
}

func TestPublishLeaderboard(t *testing.T) {
	publisher := newTestPublisher(t)
	ctx := context.Background()

	contestID := uuid.New()
	standings := []models.ContestParticipant{
		{ID: uuid.New(), ContestID: contestID, UserID: uuid.New(), Score: 100, Rank: 1},
		{ID: uuid.New(), ContestID: contestID, UserID: uuid.New(), Score: 50, Rank: 2},
	}

	sub := publisher.SubscribeToLeaderboard(ctx, contestID)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, publisher.PublishLeaderboard(ctx, contestID, standings))

	var update LeaderboardUpdate
	require.NoError(t, json.Unmarshal([]byte(receiveMessage(t, sub)), &update))
	assert.Equal(t, contestID, update.ContestID)
	require.Len(t, update.Standings, 2)
	assert.Equal(t, int32(100), update.Standings[0].Score)
	assert.Equal(t, int32(2), update.Standings[1].Rank)
}
