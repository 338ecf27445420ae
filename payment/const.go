package payment

// Status is the custom type to define the current status of a payment
type Status string

// Defining the valid statuses of a Payment. Paid is sticky: once a
// payment settles, no operation may move it to another status.
const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusOverdue   Status = "Overdue"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus returns the Status matching s, or false when s is not a valid status
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}
