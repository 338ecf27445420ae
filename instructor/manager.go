package instructor

import (
	"context"
	"errors"
	"strings"

	"github.com/vitorfp/academia/fault"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Instructors
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for instructors
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Instructor{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize instructor.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create registers a new instructor
func (m *Manager) Create(ctx context.Context, name, cref string) (*Instructor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Validationf("name is required")
	}
	if strings.TrimSpace(cref) == "" {
		return nil, fault.Validationf("cref is required")
	}

	newInstructor := &Instructor{
		Name: strings.TrimSpace(name),
		CREF: strings.TrimSpace(cref),
	}

	result := m.db.WithContext(ctx).Create(newInstructor)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot create instructor")
	}
	return newInstructor, nil
}

// Update overwrites the instructor record
func (m *Manager) Update(ctx context.Context, id int64, name, cref string) (*Instructor, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fault.Validationf("name is required")
	}
	if strings.TrimSpace(cref) == "" {
		return nil, fault.Validationf("cref is required")
	}

	existing, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(name)
	existing.CREF = strings.TrimSpace(cref)

	result := m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update instructor")
	}
	return existing, nil
}

// GetByID will try to return the instructor in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Instructor, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}

	var found Instructor
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("instructor not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get instructor by id")
	}
	return &found, nil
}

// List returns every instructor, ordered by name
func (m *Manager) List(ctx context.Context) ([]Instructor, error) {
	results := make([]Instructor, 0, 1)
	result := m.db.WithContext(ctx).Order("name asc").Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot list instructors")
	}
	return results, nil
}

// Delete removes the instructor row
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fault.Validationf("id must be positive")
	}

	result := m.db.WithContext(ctx).Delete(&Instructor{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot delete instructor")
	}
	if result.RowsAffected == 0 {
		return fault.NotFoundf("instructor not found: %d", id)
	}
	return nil
}
