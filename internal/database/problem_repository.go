package database

import (
	"context"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProblemRepository struct {
	db *GormDB
}

func NewProblemRepository(db *GormDB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

func (r *ProblemRepository) CreateProblem(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *ProblemRepository) GetProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).First(&problem, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &problem, nil
}

func (r *ProblemRepository) DeleteProblem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("problem_id = ?", id).Delete(&models.Testcase{}).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", id).Delete(&models.ContestProblem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Problem{}, "id = ?", id).Error
	})
}
