package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/fault"
	"github.com/vitorfp/academia/member"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to member check-ins
type Manager struct {
	db       *gorm.DB
	producer event.Producer
	logger   *zap.Logger
}

// NewManager returns a new Manager for attendance records
func NewManager(logger *zap.Logger, db *gorm.DB, producer event.Producer) (*Manager, error) {
	if err := db.AutoMigrate(&Attendance{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize attendance.Manager")
	}
	return &Manager{
		db:       db,
		producer: producer,
		logger:   logger,
	}, nil
}

// CheckIn records a member visit for the given day, defaulting to
// today. A second check-in on the same day is rejected.
func (m *Manager) CheckIn(ctx context.Context, memberID int64, when *time.Time) (*Attendance, error) {
	if memberID <= 0 {
		return nil, fault.Validationf("memberId must be positive")
	}

	day := today()
	if when != nil {
		day = when.UTC().Truncate(24 * time.Hour)
	}

	record := &Attendance{
		MemberID: memberID,
		Date:     day,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&member.Member{}).Where("id = ?", memberID).Count(&count).Error; err != nil {
			return fault.Store(err, "Cannot verify member")
		}
		if count == 0 {
			return fault.NotFoundf("member not found: %d", memberID)
		}
		if err := tx.Model(&Attendance{}).
			Where("member_id = ?", memberID).
			Where("date = ?", day).
			Count(&count).Error; err != nil {
			return fault.Store(err, "Cannot check for an existing visit")
		}
		if count > 0 {
			return fault.Conflictf("member %d already checked in on %s", memberID, day.Format("2006-01-02"))
		}
		if err := tx.Create(record).Error; err != nil {
			return fault.Store(err, "Cannot record the visit")
		}
		return nil
	})
	if err != nil {
		m.logFailure("Unable to record check-in", err)
		return nil, err
	}

	ev := event.New(event.TypeMemberCheckedIn)
	ev.MemberID = memberID
	m.publish(ev)

	return record, nil
}

// Update moves a visit record to another day, keeping the
// one-per-day rule
func (m *Manager) Update(ctx context.Context, id int64, when time.Time) (*Attendance, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}
	if when.IsZero() {
		return nil, fault.Validationf("date is required")
	}
	day := when.UTC().Truncate(24 * time.Hour)

	existing, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var count int64
	result := m.db.WithContext(ctx).Model(&Attendance{}).
		Where("member_id = ?", existing.MemberID).
		Where("date = ?", day).
		Where("id <> ?", id).
		Count(&count)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot check for an existing visit")
	}
	if count > 0 {
		return nil, fault.Conflictf("member %d already checked in on %s", existing.MemberID, day.Format("2006-01-02"))
	}

	existing.Date = day
	result = m.db.WithContext(ctx).Save(existing)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot update the visit")
	}
	return existing, nil
}

// GetByID will try to return the attendance record in the database by id
func (m *Manager) GetByID(ctx context.Context, id int64) (*Attendance, error) {
	if id <= 0 {
		return nil, fault.Validationf("id must be positive")
	}

	var found Attendance
	result := m.db.WithContext(ctx).First(&found, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fault.NotFoundf("attendance record not found: %d", id)
	}
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot get attendance record by id")
	}
	return &found, nil
}

// ListOption narrows List to one member or one day
type ListOption struct {
	MemberID int64
	Date     *time.Time
}

// List returns the visits matching the option, newest first
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Attendance, error) {
	baseQuery := m.db.WithContext(ctx).Order("date desc").Order("id desc")
	if opt.MemberID > 0 {
		baseQuery = baseQuery.Where("member_id = ?", opt.MemberID)
	}
	if opt.Date != nil {
		baseQuery = baseQuery.Where("date = ?", opt.Date.UTC().Truncate(24*time.Hour))
	}

	results := make([]Attendance, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, fault.Store(result.Error, "Cannot list attendance records")
	}
	return results, nil
}

// Delete removes the visit record
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fault.Validationf("id must be positive")
	}

	result := m.db.WithContext(ctx).Delete(&Attendance{}, "id = ?", id)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return fault.Store(result.Error, "Cannot delete attendance record")
	}
	if result.RowsAffected == 0 {
		return fault.NotFoundf("attendance record not found: %d", id)
	}
	return nil
}

// publish is best effort. A broker outage never fails the check-in.
func (m *Manager) publish(ev event.MembershipEvent) {
	if err := m.producer.PublishMembershipEvent(ev); err != nil {
		m.logger.Error("Unable to publish event",
			zap.String("Type", string(ev.Type)),
			zap.Error(err),
		)
	}
}

func (m *Manager) logFailure(msg string, err error) {
	var f *fault.Fault
	if errors.As(err, &f) && f.Kind != fault.KindStore {
		return
	}
	m.logger.Error(msg,
		zap.Error(err),
	)
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
