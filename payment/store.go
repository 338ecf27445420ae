package payment

import (
	"context"
	"errors"
	"time"

	"github.com/vitorfp/academia/subscription"

	extErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ListOption narrows List down to one subscription or one status
type ListOption struct {
	SubscriptionID int64
	Status         Status
}

// Store is the persistence boundary of the payment lifecycle. The
// settlement guards are expressed as conditional writes so the
// "Paid is immutable" invariant holds even when callers race.
type Store interface {
	SubscriptionExists(ctx context.Context, subscriptionID int64) (bool, error)
	Insert(ctx context.Context, p *Payment) error
	FetchByID(ctx context.Context, id int64) (*Payment, error)
	Update(ctx context.Context, p *Payment) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) (int64, error)
	SetStatusUnlessPaid(ctx context.Context, id int64, status Status) (int64, error)
	Settle(ctx context.Context, id int64, when time.Time) (int64, error)
	DeleteUnlessPaid(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, opt ListOption) ([]Payment, error)
	ListOverdue(ctx context.Context, before time.Time) ([]Payment, error)
}

type gormStore struct {
	db *gorm.DB
}

var _ Store = &gormStore{}

// NewStore returns a gorm-backed Store and migrates the payments table
func NewStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&Payment{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize payment.Store")
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) SubscriptionExists(ctx context.Context, subscriptionID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&subscription.Subscription{}).
		Where("id = ?", subscriptionID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) Insert(ctx context.Context, p *Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) FetchByID(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	result := s.db.WithContext(ctx).First(&p, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &p, nil
}

func (s *gormStore) Update(ctx context.Context, p *Payment) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"subscription_id": p.SubscriptionID,
			"period":          p.Period,
			"amount_cents":    p.AmountCents,
			"due_date":        p.DueDate,
			"status":          p.Status,
			"paid_on":         p.PaidOn,
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) SetStatus(ctx context.Context, id int64, status Status) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// SetStatusUnlessPaid only moves payments that have not settled,
// evaluated at write time
func (s *gormStore) SetStatusUnlessPaid(ctx context.Context, id int64, status Status) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", id).
		Where("status <> ?", StatusPaid).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// Settle is the one-way transition into Paid. The status guard in the
// predicate makes a double settlement affect 0 rows.
func (s *gormStore) Settle(ctx context.Context, id int64, when time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", id).
		Where("status <> ?", StatusPaid).
		Updates(map[string]interface{}{
			"status":  StatusPaid,
			"paid_on": when,
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) DeleteUnlessPaid(ctx context.Context, id int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Where("status <> ?", StatusPaid).
		Delete(&Payment{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) List(ctx context.Context, opt ListOption) ([]Payment, error) {
	baseQuery := s.db.WithContext(ctx).Order("id asc")
	if opt.SubscriptionID > 0 {
		baseQuery = baseQuery.Where("subscription_id = ?", opt.SubscriptionID)
	}
	if opt.Status != "" {
		baseQuery = baseQuery.Where("status = ?", opt.Status)
	}
	results := make([]Payment, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		return nil, result.Error
	}
	return results, nil
}

// ListOverdue returns pending payments whose due date passed. Lateness
// is derived at query time, never persisted.
func (s *gormStore) ListOverdue(ctx context.Context, before time.Time) ([]Payment, error) {
	results := make([]Payment, 0, 1)
	result := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Where("due_date < ?", before).
		Order("due_date asc").
		Order("id desc").
		Find(&results)
	if result.Error != nil {
		return nil, result.Error
	}
	return results, nil
}
