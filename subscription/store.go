package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/vitorfp/academia/member"
	"github.com/vitorfp/academia/plan"

	extErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ListOption narrows List down to one member or one plan
type ListOption struct {
	MemberID int64
	PlanID   int64
}

// Store is the persistence boundary of the subscription lifecycle.
// Every write that guards an invariant reports the affected row count
// so the Manager can detect a lost race.
type Store interface {
	Transact(ctx context.Context, fn func(Store) error) error
	MemberExists(ctx context.Context, memberID int64) (bool, error)
	PlanExists(ctx context.Context, planID int64) (bool, error)
	HasActiveForMember(ctx context.Context, memberID int64) (bool, error)
	Insert(ctx context.Context, sub *Subscription) error
	FetchByID(ctx context.Context, id int64) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) (int64, error)
	CancelActive(ctx context.Context, id int64, endFloor time.Time) (int64, error)
	List(ctx context.Context, opt ListOption) ([]Subscription, error)
}

type gormStore struct {
	db *gorm.DB
}

var _ Store = &gormStore{}

// NewStore returns a gorm-backed Store and migrates the subscriptions table
func NewStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Store")
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) MemberExists(ctx context.Context, memberID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&member.Member{}).Where("id = ?", memberID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) PlanExists(ctx context.Context, planID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&plan.Plan{}).Where("id = ?", planID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) HasActiveForMember(ctx context.Context, memberID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("member_id = ?", memberID).
		Where("status = ?", StatusActive).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) Insert(ctx context.Context, sub *Subscription) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *gormStore) FetchByID(ctx context.Context, id int64) (*Subscription, error) {
	var sub Subscription
	result := s.db.WithContext(ctx).First(&sub, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &sub, nil
}

func (s *gormStore) Update(ctx context.Context, sub *Subscription) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"start_date": sub.StartDate,
			"end_date":   sub.EndDate,
			"status":     sub.Status,
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) SetStatus(ctx context.Context, id int64, status Status) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// CancelActive is the conditional soft delete: the guard on the current
// status makes the affected row count the success signal, so a racing
// deactivation shows up as 0 rows instead of a double cancel.
func (s *gormStore) CancelActive(ctx context.Context, id int64, endFloor time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", id).
		Where("status = ?", StatusActive).
		Updates(map[string]interface{}{
			"status":   StatusCancelled,
			"end_date": gorm.Expr("GREATEST(COALESCE(end_date, ?::date), ?::date)", endFloor, endFloor),
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	baseQuery := s.db.WithContext(ctx).Order("id asc")
	if opt.MemberID > 0 {
		baseQuery = baseQuery.Where("member_id = ?", opt.MemberID)
	}
	if opt.PlanID > 0 {
		baseQuery = baseQuery.Where("plan_id = ?", opt.PlanID)
	}
	results := make([]Subscription, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		return nil, result.Error
	}
	return results, nil
}
