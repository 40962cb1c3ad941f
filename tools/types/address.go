package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is 0x followed by 40 hex digits. Mixed case
// is accepted without checksum verification: Rootstock uses EIP-1191
// checksums that EIP-55 checkers reject.
func IsValidAddress(s string) bool {
	return len(s) == 2+2*common.AddressLength && strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// ParseAddress validates the named field and converts it.
func ParseAddress(field, value string) (common.Address, error) {
	if !IsValidAddress(value) {
		return common.Address{}, InvalidAddress(field, value)
	}
	return common.HexToAddress(value), nil
}
