package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the fixed-point scale of the native coin.
const EtherDecimals = 18

// WeiToETH converts a wei amount to a decimal ETH string, trailing zeros
// trimmed ("1.5", "0", "0.000000000000000001").
func WeiToETH(wei *big.Int) string { return FormatUnits(wei, EtherDecimals) }

// FormatUnits converts base units to a display decimal string exactly, with
// trailing fractional zeros trimmed.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals <= 0 {
		return raw.String()
	}

	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, div, new(big.Int))

	out := whole.String()
	if frac.Sign() != 0 {
		fs := fmt.Sprintf("%0*s", decimals, frac.String())
		out += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a display decimal string ("12.5") into base units.
// It rejects negative values, exponents, and more fractional digits than
// decimals allows.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}

	n, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
