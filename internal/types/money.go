// README: Money value object used for voucher amounts (minor units, USD by default).
package types

import "fmt"

const DefaultCurrency = "USD"

type Money struct {
	Amount   int64  `firestore:"monto" json:"amount"`
	Currency string `firestore:"moneda" json:"currency"`
}

// Cents builds a Money in the default currency.
func Cents(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

func (m Money) String() string {
	cur := m.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, abs(m.Amount%100), cur)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
