package database

import (
	"context"
	"fmt"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionRepository struct {
	db *GormDB
}

func NewSubmissionRepository(db *GormDB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateSubmission inserts the submission and bumps the owning problem's
// total counter in the same transaction, so concurrent creates never lose an
// increment.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		return tx.Model(&models.Problem{}).
			Where("id = ?", submission.ProblemID).
			UpdateColumn("total_submissions", gorm.Expr("total_submissions + 1")).Error
	})
}

func (r *SubmissionRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// FinishVerdict persists a terminal non-accepted verdict together with its
// metrics and diagnostic.
func (r *SubmissionRepository) FinishVerdict(
	ctx context.Context,
	id uuid.UUID,
	status models.SubmissionStatus,
	executionTimeMs, memoryUsedKb int32,
	errorMessage string,
) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         status,
			"execution_time": executionTimeMs,
			"memory_used":    memoryUsedKb,
			"error_message":  errorMessage,
		}).Error
}

// FinishAccepted sets the ACCEPTED verdict and increments the problem's
// accepted counter, at most once over the submission's lifetime: the counter
// increment is guarded by the accepted_counted flag inside one transaction.
func (r *SubmissionRepository) FinishAccepted(
	ctx context.Context,
	id, problemID uuid.UUID,
	executionTimeMs, memoryUsedKb int32,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND accepted_counted = ?", id, false).
			Updates(map[string]interface{}{
				"status":           models.SubmissionStatusAccepted,
				"execution_time":   executionTimeMs,
				"memory_used":      memoryUsedKb,
				"error_message":    "",
				"accepted_counted": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return tx.Model(&models.Problem{}).
				Where("id = ?", problemID).
				UpdateColumn("accepted_submissions", gorm.Expr("accepted_submissions + 1")).Error
		}
		// Already counted on a previous run; just record the verdict.
		return tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":         models.SubmissionStatusAccepted,
				"execution_time": executionTimeMs,
				"memory_used":    memoryUsedKb,
				"error_message":  "",
			}).Error
	})
}

// ResetForRejudge moves a terminal submission back to PENDING and clears its
// previous verdict fields. It refuses to touch a submission that is still
// pending or running.
func (r *SubmissionRepository) ResetForRejudge(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status NOT IN ?", id, []models.SubmissionStatus{
			models.SubmissionStatusPending,
			models.SubmissionStatusRunning,
		}).
		Updates(map[string]interface{}{
			"status":         models.SubmissionStatusPending,
			"execution_time": 0,
			"memory_used":    0,
			"error_message":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("submission %s is not in a terminal state", id)
	}
	return nil
}

// AcceptedProblemIDs returns the distinct problems, among problemIDs, for
// which the user has at least one accepted submission.
func (r *SubmissionRepository) AcceptedProblemIDs(
	ctx context.Context,
	userID uuid.UUID,
	problemIDs []uuid.UUID,
) ([]uuid.UUID, error) {
	if len(problemIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Distinct("problem_id").
		Where("user_id = ? AND status = ? AND problem_id IN ?",
			userID, models.SubmissionStatusAccepted, problemIDs).
		Pluck("problem_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PendingSubmissions returns queued submissions in arrival order, for the
// dispatcher's intake loop.
func (r *SubmissionRepository) PendingSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SubmissionStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *SubmissionRepository) GetSubmissionsByProblem(
	ctx context.Context,
	problemID uuid.UUID,
	limit, offset int,
) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
