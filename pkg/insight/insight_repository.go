package insight

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

type (
	InsightRepository interface {
		GetLatestRun(ctx context.Context, userID uuid.UUID, rangeDays int) (*entities.InsightRun, error)
		CreateRun(ctx context.Context, run *entities.InsightRun) error
		GetInsightByID(ctx context.Context, id uuid.UUID) (*entities.Insight, error)
		UpdateInsightState(ctx context.Context, insight *entities.Insight) error
	}

	insightRepository struct {
		db *gorm.DB
	}
)

func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &insightRepository{db: db}
}

// GetLatestRun returns the newest cached run for (user, range) with its
// insights loaded, or nil when none exists.
func (r *insightRepository) GetLatestRun(ctx context.Context, userID uuid.UUID, rangeDays int) (*entities.InsightRun, error) {
	var run entities.InsightRun
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND range_days = ?", userID, rangeDays).
		Order("generated_at desc").
		Preload("Insights").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// CreateRun persists the run and its insights together.
func (r *insightRepository) CreateRun(ctx context.Context, run *entities.InsightRun) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insights := run.Insights
		run.Insights = nil
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		run.Insights = insights
		for _, in := range insights {
			in.RunID = run.ID
			if err := tx.Create(in).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *insightRepository) GetInsightByID(ctx context.Context, id uuid.UUID) (*entities.Insight, error) {
	var in entities.Insight
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *insightRepository) UpdateInsightState(ctx context.Context, insight *entities.Insight) error {
	return r.db.WithContext(ctx).Model(&entities.Insight{}).
		Where("id = ?", insight.ID).
		Updates(map[string]interface{}{
			"pinned":    insight.Pinned,
			"dismissed": insight.Dismissed,
		}).Error
}
