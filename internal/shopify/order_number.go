package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OrderNumber is the customer-facing number of a store order. It is written
// as "#1042" and encoded in JSON as a bare number.
type OrderNumber uint32

// ParseOrderNumber accepts "1042" or "#1042".
func ParseOrderNumber(s string) (OrderNumber, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid order number %q: %w", s, err)
	}
	return OrderNumber(n), nil
}

func (n OrderNumber) String() string {
	return "#" + strconv.FormatUint(uint64(n), 10)
}

func (n OrderNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint32(n))
}

// UnmarshalJSON accepts a number or a string in either written form.
func (n *OrderNumber) UnmarshalJSON(data []byte) error {
	var raw uint32
	if err := json.Unmarshal(data, &raw); err == nil {
		*n = OrderNumber(raw)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid order number %s", data)
	}
	parsed, err := ParseOrderNumber(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
