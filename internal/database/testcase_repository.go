package database

import (
	"context"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TestcaseRepository struct {
	db *GormDB
}

func NewTestcaseRepository(db *GormDB) *TestcaseRepository {
	return &TestcaseRepository{db: db}
}

func (r *TestcaseRepository) CreateTestcase(ctx context.Context, testcase *models.Testcase) error {
	return r.db.WithContext(ctx).Create(testcase).Error
}

func (r *TestcaseRepository) BatchCreateTestcases(ctx context.Context, testcases []*models.Testcase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tc := range testcases {
			if err := tx.Create(tc).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTestcasesByProblem returns the problem's testcases in their fixed judge
// order.
func (r *TestcaseRepository) GetTestcasesByProblem(
	ctx context.Context,
	problemID uuid.UUID,
) ([]models.Testcase, error) {
	var testcases []models.Testcase
	err := r.db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Order("test_order ASC").
		Find(&testcases).Error
	if err != nil {
		return nil, err
	}
	return testcases, nil
}

func (r *TestcaseRepository) GetSampleTestcases(
	ctx context.Context,
	problemID uuid.UUID,
) ([]models.Testcase, error) {
	var testcases []models.Testcase
	err := r.db.WithContext(ctx).
		Where("problem_id = ? AND is_sample = ?", problemID, true).
		Order("test_order ASC").
		Find(&testcases).Error
	if err != nil {
		return nil, err
	}
	return testcases, nil
}

func (r *TestcaseRepository) CountTestcasesByProblem(
	ctx context.Context,
	problemID uuid.UUID,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Testcase{}).
		Where("problem_id = ?", problemID).
		Count(&count).Error
	return count, err
}
