package backtest

import (
	"fmt"
	"strings"
	"time"
)

// StrategyConstantPriceThreshold names the only strategy the service accepts.
const StrategyConstantPriceThreshold = "ConstantPriceThresholdStrategy"

// Trade sides reported by the service. Side is an open tag, so other values pass through.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// DateLayout is the wire form of request dates: the ECMAScript Date.toJSON form in UTC.
// The service parses it positionally, so it must not change.
const DateLayout = "2006-01-02T15:04:05.000Z"

// StrategyParams holds the parameters of the constant price threshold strategy
type StrategyParams struct {
	Threshold   float64 `json:"threshold"`
	DaysToClose int     `json:"daysToClose" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
}

// BacktestRequest is the body POSTed to the backtest service
type BacktestRequest struct {
	Symbols        []string       `json:"symbols" validate:"min=1"`
	StartDate      Date           `json:"startDate"`
	EndDate        Date           `json:"endDate"`
	StartingCash   float64        `json:"startingCash" validate:"gte=0"`
	Strategy       string         `json:"strategy" validate:"required"`
	StrategyParams StrategyParams `json:"strategyParams"`
}

// TradeInfo is one executed trade as reported by the service
type TradeInfo struct {
	Side   string  `json:"side"`
	Symbol string  `json:"symbol"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Time   string  `json:"time"` // ISO-8601
}

// BacktestResponse is the service's result for one backtest
type BacktestResponse struct {
	ProfitLoss       float64     `json:"profitLoss"`
	AnnualizedReturn float64     `json:"annualizedReturn"` // fraction, 0.05 = 5%
	MaxDrawdown      float64     `json:"maxDrawdown"`      // fraction
	WinProbability   float64     `json:"winProbability"`   // [0,1]
	Trades           []TradeInfo `json:"trades"`           // execution order
}

// Date is a calendar date carried in a request.
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day.
func NewDate(t time.Time) Date {
	t = t.UTC()
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// String returns the wire form of the date.
func (d Date) String() string {
	return d.Time.UTC().Format(DateLayout)
}

// MarshalJSON encodes the date in DateLayout.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts DateLayout or any RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	*d = Date{Time: t.UTC()}
	return nil
}

// tradeTimeLayouts are tried in order. The service emits naive ISO timestamps
// for exchange-local times, so offsets are optional.
var tradeTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTradeTime parses an ISO-8601 trade timestamp.
func ParseTradeTime(s string) (time.Time, error) {
	for _, layout := range tradeTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized trade time %q", s)
}
