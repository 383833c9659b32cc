package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sankirtan-pos/backend/internal/models"
	"gorm.io/gorm"
)

// SearchEventRepositoryImpl implements SearchEventRepository
type SearchEventRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchEventRepository(db *gorm.DB) models.SearchEventRepository {
	return &SearchEventRepositoryImpl{db: db}
}

func (r *SearchEventRepositoryImpl) Append(ctx context.Context, event *models.SearchEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *SearchEventRepositoryImpl) Get(ctx context.Context, id string) (*models.SearchEvent, error) {
	var event models.SearchEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *SearchEventRepositoryImpl) SetClick(ctx context.Context, id, entryID string, clickedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SearchEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"clicked_entry_id": entryID,
			"clicked_at":       clickedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

func (r *SearchEventRepositoryImpl) ListActiveSince(ctx context.Context, since time.Time) ([]models.SearchEvent, error) {
	var events []models.SearchEvent
	err := r.db.WithContext(ctx).
		Where("searched_at >= ? OR clicked_at >= ?", since, since).
		Order("searched_at ASC").
		Find(&events).Error
	return events, err
}

func (r *SearchEventRepositoryImpl) ClickCountsSince(ctx context.Context, since time.Time) ([]models.ClickCount, error) {
	var counts []models.ClickCount
	err := r.db.WithContext(ctx).Model(&models.SearchEvent{}).
		Select("clicked_entry_id AS entry_id, COUNT(*) AS clicks").
		Where("clicked_entry_id IS NOT NULL AND clicked_at >= ?", since).
		Group("clicked_entry_id").
		Scan(&counts).Error
	return counts, err
}

func (r *SearchEventRepositoryImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("searched_at < ?", cutoff).
		Delete(&models.SearchEvent{})
	return result.RowsAffected, result.Error
}
