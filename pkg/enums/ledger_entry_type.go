package enums

import "fmt"

// LedgerEntryType classifies a balance-affecting ledger entry. (type, reference) is unique.
type LedgerEntryType string

const (
	LedgerEntryOrder              LedgerEntryType = "ORDER"
	LedgerEntryOrderItemsRefund   LedgerEntryType = "ORDER_ITEMS_REFUND"
	LedgerEntryOrderItemsStatus   LedgerEntryType = "ORDER_ITEMS_STATUS"
	LedgerEntryOrderItemRefund    LedgerEntryType = "ORDER_ITEM_REFUND"
	LedgerEntryOrderItemStatus    LedgerEntryType = "ORDER_ITEM_STATUS"
	LedgerEntryTopUpApproved      LedgerEntryType = "TOPUP_APPROVED"
	LedgerEntryAgentProfitDeposit LedgerEntryType = "AGENT_PROFIT_DEPOSIT"
	LedgerEntryRefund             LedgerEntryType = "REFUND"
	LedgerEntryAdjustment         LedgerEntryType = "ADJUSTMENT"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryOrder,
	LedgerEntryOrderItemsRefund,
	LedgerEntryOrderItemsStatus,
	LedgerEntryOrderItemRefund,
	LedgerEntryOrderItemStatus,
	LedgerEntryTopUpApproved,
	LedgerEntryAgentProfitDeposit,
	LedgerEntryRefund,
	LedgerEntryAdjustment,
}

// IsValid reports whether the value matches a known ledger entry type.
func (v LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v LedgerEntryType) String() string {
	return string(v)
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
