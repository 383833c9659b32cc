package repository

import (
	"time"

	"github.com/sankirtan-pos/backend/internal/models"
	"gorm.io/gorm"
)

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Create(&models.SystemHealth{
		ServiceName:    serviceName,
		Status:         status,
		ResponseTimeMs: responseTime,
		ErrorMessage:   errorMsg,
		CheckedAt:      time.Now().UTC(),
	}).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		Order("id DESC").
		First(&health).Error
	if err != nil {
		return nil, err
	}
	return &health, nil
}

// GetAllServicesHealth returns the latest check per service.
func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT *
		FROM system_health
		WHERE id IN (SELECT MAX(id) FROM system_health GROUP BY service_name)
		ORDER BY service_name
	`).Scan(&health).Error
	return health, err
}
