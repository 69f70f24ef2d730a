package enums

import "fmt"

// AgentStoreOrderStatus flows Pending -> Approved -> Processing or Pending -> Rejected.
type AgentStoreOrderStatus string

const (
	AgentStoreOrderPending    AgentStoreOrderStatus = "Pending"
	AgentStoreOrderApproved   AgentStoreOrderStatus = "Approved"
	AgentStoreOrderProcessing AgentStoreOrderStatus = "Processing"
	AgentStoreOrderRejected   AgentStoreOrderStatus = "Rejected"
)

var validAgentStoreOrderStatuses = []AgentStoreOrderStatus{
	AgentStoreOrderPending,
	AgentStoreOrderApproved,
	AgentStoreOrderProcessing,
	AgentStoreOrderRejected,
}

// IsValid reports whether the value matches a known agent store order status.
func (v AgentStoreOrderStatus) IsValid() bool {
	for _, candidate := range validAgentStoreOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v AgentStoreOrderStatus) String() string {
	return string(v)
}

// ParseAgentStoreOrderStatus converts raw input into AgentStoreOrderStatus.
func ParseAgentStoreOrderStatus(value string) (AgentStoreOrderStatus, error) {
	for _, candidate := range validAgentStoreOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent store order status %q", value)
}
