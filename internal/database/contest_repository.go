package database

import (
	"context"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContestRepository struct {
	db *GormDB
}

func NewContestRepository(db *GormDB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) CreateContest(ctx context.Context, contest *models.Contest) error {
	return r.db.WithContext(ctx).Create(contest).Error
}

func (r *ContestRepository) GetContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	var contest models.Contest
	err := r.db.WithContext(ctx).First(&contest, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contest, nil
}

// GetContestProblems returns the contest's problem attachments in display
// order, each carrying its contest-specific score.
func (r *ContestRepository) GetContestProblems(
	ctx context.Context,
	contestID uuid.UUID,
) ([]models.ContestProblem, error) {
	var problems []models.ContestProblem
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("problem_order ASC").
		Find(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *ContestRepository) AddProblemToContest(
	ctx context.Context,
	contestID, problemID uuid.UUID,
	score int32,
) error {
	var maxOrder int32
	err := r.db.WithContext(ctx).
		Model(&models.ContestProblem{}).
		Select("COALESCE(MAX(problem_order), -1)").
		Where("contest_id = ?", contestID).
		Scan(&maxOrder).Error
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Create(&models.ContestProblem{
		ContestID:    contestID,
		ProblemID:    problemID,
		ProblemOrder: maxOrder + 1,
		Score:        score,
	}).Error
}

// ContestsWithProblem returns the ids of contests that include the problem.
// Used to decide which leaderboards an accepted verdict touches.
func (r *ContestRepository) ContestsWithProblem(
	ctx context.Context,
	problemID uuid.UUID,
) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ContestProblem{}).
		Where("problem_id = ?", problemID).
		Pluck("contest_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
