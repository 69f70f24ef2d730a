package enums

import "fmt"

// ComplaintStatus tracks admin handling of a customer complaint.
type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "Pending"
	ComplaintResolved ComplaintStatus = "Resolved"
	ComplaintRejected ComplaintStatus = "Rejected"
)

var validComplaintStatuses = []ComplaintStatus{
	ComplaintPending,
	ComplaintResolved,
	ComplaintRejected,
}

// IsValid reports whether the value matches a known complaint status.
func (v ComplaintStatus) IsValid() bool {
	for _, candidate := range validComplaintStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v ComplaintStatus) String() string {
	return string(v)
}

// ParseComplaintStatus converts raw input into ComplaintStatus.
func ParseComplaintStatus(value string) (ComplaintStatus, error) {
	for _, candidate := range validComplaintStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid complaint status %q", value)
}
