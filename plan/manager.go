package plan

import (
	"context"
	"errors"
	"strings"

	"github.com/vitorfp/academia/fault"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Plans
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for plans
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Plan{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize plan.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// CreateOption describes a new plan
type CreateOption struct {
	Name           string
	PriceCents     int64
	DurationMonths int
}

// Create registers a new plan
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Plan, error) {
	if err := validate(opt.Name, opt.PriceCents, opt.DurationMonths); err != nil {
		return nil, err
	}

	newPlan := &Plan{
		Name:           strings.TrimSpace(opt.Name),
		PriceCents:     opt.PriceCents,
		DurationMonths: opt.DurationMonths,
	}

	result := m.db.WithContext(ctx).Create(newPlan)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot create plan")
	}
	return newPlan, nil
}

// Update overwrites the plan record
func (m *Manager) Update(ctx context.Context, id int64, opt CreateOption) (*Plan, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}
	if err := validate(opt.Name, opt.PriceCents, opt.DurationMonths); err != nil {
		return nil, err
	}

	existing, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(opt.Name)
	existing.PriceCents = opt.PriceCents
	existing.DurationMonths = opt.DurationMonths

	result := m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update plan")
	}
	return existing, nil
}

// GetByID will try to return the plan in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Plan, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}

	var found Plan
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("plan not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get plan by id")
	}
	return &found, nil
}

// List returns every plan, ordered by name
func (m *Manager) List(ctx context.Context) ([]Plan, error) {
	results := make([]Plan, 0, 1)
	result := m.db.WithContext(ctx).Order("name asc").Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot list plans")
	}
	return results, nil
}

// Delete removes the plan row
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fault.Validationf("id must be positive")
	}

	result := m.db.WithContext(ctx).Delete(&Plan{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot delete plan")
	}
	if result.RowsAffected == 0 {
		return fault.NotFoundf("plan not found: %d", id)
	}
	return nil
}

func validate(name string, priceCents int64, durationMonths int) error {
	if strings.TrimSpace(name) == "" {
		return fault.Validationf("name is required")
	}
	if priceCents <= 0 {
		return fault.Validationf("price must be positive")
	}
	if durationMonths <= 0 {
		return fault.Validationf("duration must be at least one month")
	}
	return nil
}
