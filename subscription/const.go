package subscription

// Status is the custom type to define the current status of a subscription
type Status string

// Defining the valid statuses of a Subscription
const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusOverdue   Status = "Overdue"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus returns the Status matching s, or false when s is not a valid status
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusOverdue, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}
