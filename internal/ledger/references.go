package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Reference builders. Each money movement is keyed so a retry maps to the
// same (type, reference) pair.

func OrderRef(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

func OrderItemsRefundRef(orderID uuid.UUID) string {
	return "order_items_refund:" + orderID.String()
}

func OrderStatusRef(orderID uuid.UUID, status enums.OrderStatus) string {
	return fmt.Sprintf("order_status:%s:%s", orderID, status)
}

func OrderItemRefundRef(itemID uuid.UUID) string {
	return "order_item_refund:" + itemID.String()
}

func OrderItemStatusRef(itemID uuid.UUID, status enums.OrderStatus) string {
	return fmt.Sprintf("order_item_status:%s:%s", itemID, status)
}

func AgentProfitRef(profitID uuid.UUID) string {
	return "agent_profit:" + profitID.String()
}

func TopUpRef(reference string) string {
	return "topup:" + reference
}
