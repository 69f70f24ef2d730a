package enums

import "fmt"

// AgentProfitStatus flows Pending -> Deposited or Pending -> Sent, exactly once.
type AgentProfitStatus string

const (
	AgentProfitPending   AgentProfitStatus = "Pending"
	AgentProfitDeposited AgentProfitStatus = "Deposited"
	AgentProfitSent      AgentProfitStatus = "Sent"
)

var validAgentProfitStatuses = []AgentProfitStatus{
	AgentProfitPending,
	AgentProfitDeposited,
	AgentProfitSent,
}

// IsValid reports whether the value matches a known agent profit status.
func (v AgentProfitStatus) IsValid() bool {
	for _, candidate := range validAgentProfitStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v AgentProfitStatus) String() string {
	return string(v)
}

// ParseAgentProfitStatus converts raw input into AgentProfitStatus.
func ParseAgentProfitStatus(value string) (AgentProfitStatus, error) {
	for _, candidate := range validAgentProfitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent profit status %q", value)
}
