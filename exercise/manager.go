package exercise

import (
	"context"
	"errors"
	"strings"

	"github.com/vitorfp/academia/fault"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to the exercise catalog
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for exercises
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Exercise{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize exercise.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create adds an exercise to the catalog
func (m *Manager) Create(ctx context.Context, name, muscleGroup string) (*Exercise, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Validationf("name is required")
	}

	newExercise := &Exercise{
		Name:        strings.TrimSpace(name),
		MuscleGroup: strings.TrimSpace(muscleGroup),
	}

	result := m.db.WithContext(ctx).Create(newExercise)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot create exercise")
	}
	return newExercise, nil
}

// Update overwrites the exercise record
func (m *Manager) Update(ctx context.Context, id int64, name, muscleGroup string) (*Exercise, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fault.Validationf("name is required")
	}

	existing, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(name)
	existing.MuscleGroup = strings.TrimSpace(muscleGroup)

	result := m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update exercise")
	}
	return existing, nil
}

// GetByID will try to return the exercise in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Exercise, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}

	var found Exercise
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("exercise not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get exercise by id")
	}
	return &found, nil
}

// SearchOption narrows Search by name or muscle group, both matched
// as case-insensitive substrings
type SearchOption struct {
	Name        string
	MuscleGroup string
}

// Search returns the catalog entries matching the option, ordered by name
func (m *Manager) Search(ctx context.Context, opt SearchOption) ([]Exercise, error) {
	baseQuery := m.db.WithContext(ctx).Order("name asc")
	if opt.Name != "" {
		baseQuery = baseQuery.Where("name ILIKE ?", "%"+opt.Name+"%")
	}
	if opt.MuscleGroup != "" {
		baseQuery = baseQuery.Where("muscle_group ILIKE ?", "%"+opt.MuscleGroup+"%")
	}

	results := make([]Exercise, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot search exercises")
	}
	return results, nil
}

// Delete removes the exercise from the catalog
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fault.Validationf("id must be positive")
	}

	result := m.db.WithContext(ctx).Delete(&Exercise{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot delete exercise")
	}
	if result.RowsAffected == 0 {
		return fault.NotFoundf("exercise not found: %d", id)
	}
	return nil
}
