package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vitorfp/academia/fault"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Members
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for members
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Member{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize member.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// CreateOption describes a new member
type CreateOption struct {
	Name      string
	BirthDate time.Time
	Phone     string
}

// Create enrolls a new member, active by default
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Member, error) {
	if strings.TrimSpace(opt.Name) == "" {
		return nil, fault.Validationf("name is required")
	}
	if opt.BirthDate.IsZero() {
		return nil, fault.Validationf("birthDate is required")
	}

	newMember := &Member{
		Name:      strings.TrimSpace(opt.Name),
		BirthDate: opt.BirthDate,
		Active:    true,
		Phone:     opt.Phone,
	}

	result := m.db.WithContext(ctx).Create(newMember)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot create member")
	}
	return newMember, nil
}

// UpdateOption overwrites the mutable fields of a member
type UpdateOption struct {
	ID        int64
	Name      string
	BirthDate time.Time
	Active    bool
	Phone     string
}

// Update overwrites the member record
func (m *Manager) Update(ctx context.Context, opt UpdateOption) (*Member, error) {
	if opt.ID <= 0 {
		return nil, fault.Validationf("id must be positive")
	}
	if strings.TrimSpace(opt.Name) == "" {
		return nil, fault.Validationf("name is required")
	}
	if opt.BirthDate.IsZero() {
		return nil, fault.Validationf("birthDate is required")
	}

	existing, err := m.GetByID(ctx, opt.ID)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(opt.Name)
	existing.BirthDate = opt.BirthDate
	existing.Active = opt.Active
	existing.Phone = opt.Phone

	result := m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update member")
	}
	return existing, nil
}

// GetByID will try to return the member in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Member, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}

	var found Member
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("member not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get member by id")
	}
	return &found, nil
}

// List returns every member, ordered by name
func (m *Manager) List(ctx context.Context) ([]Member, error) {
	results := make([]Member, 0, 1)
	result := m.db.WithContext(ctx).Order("name asc").Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot list members")
	}
	return results, nil
}

// Delete removes the member row
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fault.Validationf("id must be positive")
	}

	result := m.db.WithContext(ctx).Delete(&Member{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot delete member")
	}
	if result.RowsAffected == 0 {
		return fault.NotFoundf("member not found: %d", id)
	}
	return nil
}
