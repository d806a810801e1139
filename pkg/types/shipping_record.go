package types

// ShippingRecord is the shipping sub-record embedded on an order once a fee is
// quoted; ShippingID is filled in when the carrier accepts the shipment.
type ShippingRecord struct {
	ShippingID string `json:"shipping_id,omitempty"`
	Fee        int64  `json:"fee"`
	Express    bool   `json:"express"`
	Reason     string `json:"reason,omitempty"`
}
