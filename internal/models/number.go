package models

import "github.com/shopspring/decimal"

// Number encodes a decimal as a bare JSON number.
type Number decimal.Decimal

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}
