package attendance

import "time"

// Attendance records one member visit. A member checks in at most once
// per calendar day.
type Attendance struct {
	ID       int64     `json:"id" gorm:"primaryKey"`
	MemberID int64     `json:"memberId" gorm:"index;not null"`
	Date     time.Time `json:"date" gorm:"type:date;not null"`
}
