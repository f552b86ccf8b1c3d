// README: Common value objects shared across modules.
package types

// ID is an opaque identity string (UUID for rows we create, free-form for
// external references).
type ID string

type Point struct {
	Lat float64
	Lng float64
}

// Money is an integer amount in minor units (paise). All fare arithmetic is
// integer-only so identical inputs always produce identical breakdowns.
type Money struct {
	Amount   int64
	Currency string
}

const DefaultCurrency = "INR"

func Paise(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// Percent returns pct% of m, truncated toward zero.
func (m Money) Percent(pct int64) Money {
	return Money{Amount: m.Amount * pct / 100, Currency: m.Currency}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}
}

func (m Money) IsZero() bool { return m.Amount == 0 }

func (m Money) Negative() bool { return m.Amount < 0 }
