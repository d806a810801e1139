package types

import "strings"

// DeliveryAddress is the immutable address snapshot captured at checkout.
// It is replaced wholesale on the single permitted edit, never mutated
// field-by-field.
type DeliveryAddress struct {
	AddressID string `json:"address_id,omitempty"`
	Line      string `json:"line"`
	Province  string `json:"province"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	Edited    bool   `json:"edited"`
}

// IsZero reports whether no snapshot has been captured.
func (a DeliveryAddress) IsZero() bool {
	return strings.TrimSpace(a.Line) == "" &&
		strings.TrimSpace(a.Province) == "" &&
		strings.TrimSpace(a.District) == "" &&
		strings.TrimSpace(a.Ward) == ""
}
