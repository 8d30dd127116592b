package workspace

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRate accepts both "120.50" and the comma decimal "120,50".
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid rate %q", ErrInvalid, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative rate %s", ErrInvalid, s)
	}
	return d, nil
}
