package enums

import "fmt"

// ShopOrderSource records which checkout flow produced a shop order.
type ShopOrderSource string

const (
	ShopOrderSourceGuest      ShopOrderSource = "GUEST"
	ShopOrderSourceAgentStore ShopOrderSource = "AGENT_STORE"
)

var validShopOrderSources = []ShopOrderSource{
	ShopOrderSourceGuest,
	ShopOrderSourceAgentStore,
}

// IsValid reports whether the value matches a known shop order source.
func (v ShopOrderSource) IsValid() bool {
	for _, candidate := range validShopOrderSources {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v ShopOrderSource) String() string {
	return string(v)
}

// ParseShopOrderSource converts raw input into ShopOrderSource.
func ParseShopOrderSource(value string) (ShopOrderSource, error) {
	for _, candidate := range validShopOrderSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shop order source %q", value)
}
