package subscription

import "time"

// Subscription ties a Member to a Plan for a period of time.
// At most one Active subscription may exist per member, and the
// Cancelled status is terminal: it is only reached via Cancel,
// never by deleting the row.
type Subscription struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	MemberID  int64      `json:"memberId" gorm:"index;not null"`
	PlanID    int64      `json:"planId" gorm:"index;not null"`
	StartDate time.Time  `json:"startDate" gorm:"type:date;not null"`
	EndDate   *time.Time `json:"endDate" gorm:"type:date"` // nil while open-ended
	Status    Status     `json:"status" gorm:"type:varchar(16);index;not null"`
}
