// Package present turns a backtest response into display strings.
package present

import (
	"math"
	"math/big"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/shopspring/decimal"
)

// TradeDateLayout renders a trade's calendar date, e.g. "Tue Jan 02 2024".
const TradeDateLayout = "Mon Jan 02 2006"

// Summary holds the formatted headline metrics.
type Summary struct {
	ProfitLoss       string `json:"profitLoss"`
	AnnualizedReturn string `json:"annualizedReturn"`
	MaxDrawdown      string `json:"maxDrawdown"`
	WinProbability   string `json:"winProbability"`
}

// TradeRow is one line of the trade table.
type TradeRow struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Shares string `json:"shares"`
	Price  string `json:"price"`
	Total  string `json:"total"`
	// Class tags the row with its side for styling.
	Class string `json:"class"`
}

// View is everything the result page shows.
type View struct {
	Summary Summary    `json:"summary"`
	Trades  []TradeRow `json:"trades"`
}

// Present formats resp for display. Trades keep the service's order.
func Present(resp *backtest.BacktestResponse) View {
	view := View{
		Summary: Summary{
			ProfitLoss:       Currency(resp.ProfitLoss),
			AnnualizedReturn: Percent(resp.AnnualizedReturn),
			MaxDrawdown:      Percent(resp.MaxDrawdown),
			WinProbability:   Percent(resp.WinProbability),
		},
		Trades: make([]TradeRow, 0, len(resp.Trades)),
	}

	for _, t := range resp.Trades {
		view.Trades = append(view.Trades, TradeRow{
			Date:   TradeDate(t.Time),
			Symbol: t.Symbol,
			Side:   t.Side,
			Shares: decimal.NewFromFloat(t.Shares).String(),
			Price:  "$" + fixed(t.Price, 2),
			Total:  "$" + fixed(t.Shares*t.Price, 2),
			Class:  t.Side,
		})
	}

	return view
}

// Currency formats an amount as dollars with two decimals.
func Currency(v float64) string {
	return "$" + fixed(v, 2)
}

// Percent formats a fraction as a percentage with four decimals.
func Percent(v float64) string {
	return fixed(v*100, 4) + "%"
}

// fixed formats v with places decimals. Like JavaScript's toFixed it rounds
// the exact binary value half away from zero, so 1.005 (stored as
// 1.00499...) gives "1.00".
func fixed(v float64, places int32) string {
	s := exact(math.Abs(v)).StringFixed(places)
	if v < 0 {
		return "-" + s
	}
	return s
}

// exact returns the exact decimal value of a finite v. NewFromFloat would
// first round it to the shortest string that parses back to v.
func exact(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	// mant * 2^exp == mant * 5^-exp * 10^exp
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, five), int32(exp))
}

// TradeDate renders the calendar date of an ISO-8601 timestamp in the
// timestamp's own zone. Unparseable input is shown as "Invalid Date".
func TradeDate(ts string) string {
	t, err := backtest.ParseTradeTime(ts)
	if err != nil {
		return "Invalid Date"
	}
	return t.Format(TradeDateLayout)
}
