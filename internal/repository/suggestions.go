package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sankirtan-pos/backend/internal/models"
	"gorm.io/gorm"
)

// SuggestionRepositoryImpl implements SuggestionRepository
type SuggestionRepositoryImpl struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) models.SuggestionRepository {
	return &SuggestionRepositoryImpl{db: db}
}

// Upsert is a single statement on both postgres and sqlite, so concurrent
// identical queries never lose an increment.
func (r *SuggestionRepositoryImpl) Upsert(ctx context.Context, normalizedText, displayText, language string, usedAt time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO suggestion_entries (normalized_text, display_text, language, frequency, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (language, normalized_text)
		DO UPDATE SET
			frequency = suggestion_entries.frequency + 1,
			last_used_at = CASE
				WHEN excluded.last_used_at > suggestion_entries.last_used_at THEN excluded.last_used_at
				ELSE suggestion_entries.last_used_at
			END,
			updated_at = excluded.updated_at
	`, normalizedText, displayText, language, usedAt, usedAt, usedAt).Error
}

func (r *SuggestionRepositoryImpl) Get(ctx context.Context, normalizedText, language string) (*models.SuggestionEntry, error) {
	var entry models.SuggestionEntry
	err := r.db.WithContext(ctx).
		Where("language = ? AND normalized_text = ?", language, normalizedText).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *SuggestionRepositoryImpl) ListByPrefix(ctx context.Context, prefix, language string, limit int) ([]models.SuggestionEntry, error) {
	var entries []models.SuggestionEntry
	err := r.db.WithContext(ctx).
		Where("language = ? AND normalized_text LIKE ? ESCAPE '!'", language, escapeLike(prefix)+"%").
		Order("frequency DESC").
		Order("last_used_at DESC").
		Order("normalized_text ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *SuggestionRepositoryImpl) DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_used_at < ?", cutoff).
		Delete(&models.SuggestionEntry{})
	return result.RowsAffected, result.Error
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
