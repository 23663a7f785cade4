package database

import (
	"context"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParticipantRepository struct {
	db *GormDB
}

func NewParticipantRepository(db *GormDB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// JoinContest creates the participant row with zero score and rank. Rank is
// meaningless until the ranking engine has run at least once.
func (r *ParticipantRepository) JoinContest(
	ctx context.Context,
	contestID, userID uuid.UUID,
) (*models.ContestParticipant, error) {
	participant := &models.ContestParticipant{
		ContestID: contestID,
		UserID:    userID,
	}
	if err := r.db.WithContext(ctx).Create(participant).Error; err != nil {
		return nil, err
	}
	return participant, nil
}

func (r *ParticipantRepository) GetParticipantsByContest(
	ctx context.Context,
	contestID uuid.UUID,
) ([]models.ContestParticipant, error) {
	var participants []models.ContestParticipant
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("rank ASC, created_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// UpdateStandings persists recomputed score and rank for every participant
// in one transaction.
func (r *ParticipantRepository) UpdateStandings(
	ctx context.Context,
	participants []models.ContestParticipant,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range participants {
			err := tx.Model(&models.ContestParticipant{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"score": p.Score,
					"rank":  p.Rank,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ParticipantRepository) CountParticipantsByContest(
	ctx context.Context,
	contestID uuid.UUID,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContestParticipant{}).
		Where("contest_id = ?", contestID).
		Count(&count).Error
	return count, err
}
