package payment

import "time"

// Payment is one billing ledger row of a Subscription. Period is the
// billing month (stored as its first day), AmountCents keeps the value
// currency-exact, and PaidOn stays nil until the payment settles.
type Payment struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	SubscriptionID int64      `json:"subscriptionId" gorm:"index;not null"`
	Period         time.Time  `json:"period" gorm:"type:date;not null"`
	AmountCents    int64      `json:"amountCents" gorm:"not null"`
	DueDate        time.Time  `json:"dueDate" gorm:"type:date;not null"`
	Status         Status     `json:"status" gorm:"type:varchar(16);index;not null"`
	PaidOn         *time.Time `json:"paidOn" gorm:"type:date"`
}
