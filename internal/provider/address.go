package provider

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// IsAddress reports whether s is a well-formed account address: "0x" plus
// 40 hex digits. All-lowercase and all-uppercase digits are accepted as
// unchecksummed; mixed case must match the EIP-55 checksum. Pure, no I/O.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	body := s[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return validChecksum(body)
}

// Checksum returns the EIP-55 form of a valid address.
func Checksum(s string) string {
	return common.HexToAddress(s).Hex()
}

// validChecksum checks each letter's case against the keccak of the
// lowercase address: nibble >= 8 means uppercase.
func validChecksum(body string) bool {
	lower := strings.ToLower(body)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := hex.EncodeToString(h.Sum(nil))

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= '0' && c <= '9' {
			continue
		}
		upper := sum[i] >= '8'
		if upper != (c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
