package workout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vitorfp/academia/fault"
	"github.com/vitorfp/academia/instructor"
	"github.com/vitorfp/academia/member"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to workout sheets
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for workouts
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Workout{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize workout.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// CreateOption describes a new workout sheet
type CreateOption struct {
	Title        string
	InstructorID int64
	MemberID     int64
}

// Create opens a new workout sheet for a member, authored by an
// instructor. The sheet starts active and empty.
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Workout, error) {
	if strings.TrimSpace(opt.Title) == "" {
		return nil, fault.Validationf("title is required")
	}
	if err := validateID(opt.InstructorID, "instructorId"); err != nil {
		return nil, err
	}
	if err := validateID(opt.MemberID, "memberId"); err != nil {
		return nil, err
	}

	if err := m.ensureExists(ctx, &instructor.Instructor{}, opt.InstructorID, "instructor"); err != nil {
		return nil, err
	}
	if err := m.ensureExists(ctx, &member.Member{}, opt.MemberID, "member"); err != nil {
		return nil, err
	}

	newWorkout := &Workout{
		Title:        strings.TrimSpace(opt.Title),
		CreatedOn:    time.Now().UTC().Truncate(24 * time.Hour),
		Active:       true,
		InstructorID: opt.InstructorID,
		MemberID:     opt.MemberID,
	}

	result := m.db.WithContext(ctx).Create(newWorkout)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot create workout")
	}
	return newWorkout, nil
}

// UpdateOption overwrites the mutable fields of a workout sheet
type UpdateOption struct {
	ID           int64
	Title        string
	Active       bool
	InstructorID int64
	MemberID     int64
}

// Update overwrites the workout record
func (m *Manager) Update(ctx context.Context, opt UpdateOption) (*Workout, error) {
	if err := validateID(opt.ID, "id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opt.Title) == "" {
		return nil, fault.Validationf("title is required")
	}
	if err := validateID(opt.InstructorID, "instructorId"); err != nil {
		return nil, err
	}
	if err := validateID(opt.MemberID, "memberId"); err != nil {
		return nil, err
	}

	existing, err := m.GetByID(ctx, opt.ID)
	if err != nil {
		return nil, err
	}

	if err := m.ensureExists(ctx, &instructor.Instructor{}, opt.InstructorID, "instructor"); err != nil {
		return nil, err
	}
	if err := m.ensureExists(ctx, &member.Member{}, opt.MemberID, "member"); err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(opt.Title)
	existing.Active = opt.Active
	existing.InstructorID = opt.InstructorID
	existing.MemberID = opt.MemberID

	result := m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update workout")
	}
	return existing, nil
}

// GetByID will try to return the workout in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Workout, error) {
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}

	var found Workout
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("workout not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get workout by id")
	}
	return &found, nil
}

// ListOption narrows List to a single member or instructor
type ListOption struct {
	MemberID     int64
	InstructorID int64
}

// List returns the workouts matching the option, newest first
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Workout, error) {
	baseQuery := m.db.WithContext(ctx).Order("created_on desc").Order("id desc")
	if opt.MemberID > 0 {
		baseQuery = baseQuery.Where("member_id = ?", opt.MemberID)
	}
	if opt.InstructorID > 0 {
		baseQuery = baseQuery.Where("instructor_id = ?", opt.InstructorID)
	}

	results := make([]Workout, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot list workouts")
	}
	return results, nil
}

// Delete removes the workout along with its items
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := validateID(id, "id"); err != nil {
		return err
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workout_id = ?", id).Delete(&Item{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Workout{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fault.NotFoundf("workout not found: %d", id)
		}
		return nil
	})
	if err != nil {
		var f *fault.Fault
		if errors.As(err, &f) {
			return err
		}
		m.logger.Error("Database returned error",
			zap.Error(err),
		)
		return fault.Store(err, "Cannot delete workout")
	}
	return nil
}

func (m *Manager) ensureExists(ctx context.Context, model interface{}, id int64, label string) error {
	var count int64
	result := m.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot verify "+label)
	}
	if count == 0 {
		return fault.NotFoundf("%s not found: %d", label, id)
	}
	return nil
}
