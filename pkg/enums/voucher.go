package enums

import "fmt"

// VoucherStatus tracks a voucher through its approval pipeline.
type VoucherStatus string

const (
	VoucherStatusPending   VoucherStatus = "pending"
	VoucherStatusApproved  VoucherStatus = "approved"
	VoucherStatusAvailable VoucherStatus = "available"
	VoucherStatusExpired   VoucherStatus = "expired"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusPending,
	VoucherStatusApproved,
	VoucherStatusAvailable,
	VoucherStatusExpired,
}

// IsValid reports whether the value matches the canonical voucher status enum.
func (s VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVoucherStatus converts the raw string to VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}

// VoucherType distinguishes finite pools from unlimited campaigns.
type VoucherType string

const (
	VoucherTypeLimited   VoucherType = "limited"
	VoucherTypeUnlimited VoucherType = "unlimited"
)

// IsValid reports whether the value matches the canonical voucher type enum.
func (t VoucherType) IsValid() bool {
	return t == VoucherTypeLimited || t == VoucherTypeUnlimited
}

// ParseVoucherType converts the raw string to VoucherType.
func ParseVoucherType(value string) (VoucherType, error) {
	switch VoucherType(value) {
	case VoucherTypeLimited:
		return VoucherTypeLimited, nil
	case VoucherTypeUnlimited:
		return VoucherTypeUnlimited, nil
	default:
		return "", fmt.Errorf("invalid voucher type %q", value)
	}
}
