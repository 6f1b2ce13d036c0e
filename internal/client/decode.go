package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/backtester/internal/backtest"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// wireResponse mirrors BacktestResponse with pointer fields so absent and
// null values can be told apart from zero. An empty trades array is valid,
// a missing one is not.
type wireResponse struct {
	ProfitLoss       *float64    `json:"profitLoss" validate:"required"`
	AnnualizedReturn *float64    `json:"annualizedReturn" validate:"required"`
	MaxDrawdown      *float64    `json:"maxDrawdown" validate:"required"`
	WinProbability   *float64    `json:"winProbability" validate:"required"`
	Trades           []wireTrade `json:"trades" validate:"required,dive"`
}

type wireTrade struct {
	Side   *string  `json:"side" validate:"required"`
	Symbol *string  `json:"symbol" validate:"required"`
	Shares *float64 `json:"shares" validate:"required"`
	Price  *float64 `json:"price" validate:"required,gte=0"`
	Time   *string  `json:"time" validate:"required"`
}

func decodeResponse(r io.Reader) (*backtest.BacktestResponse, error) {
	var wire wireResponse
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	if err := validate.Struct(wire); err != nil {
		return nil, describe(err)
	}

	trades := make([]backtest.TradeInfo, len(wire.Trades))
	for i, t := range wire.Trades {
		if _, err := backtest.ParseTradeTime(*t.Time); err != nil {
			return nil, fmt.Errorf("trades[%d].time: %w", i, err)
		}
		trades[i] = backtest.TradeInfo{
			Side:   *t.Side,
			Symbol: *t.Symbol,
			Shares: *t.Shares,
			Price:  *t.Price,
			Time:   *t.Time,
		}
	}

	return &backtest.BacktestResponse{
		ProfitLoss:       *wire.ProfitLoss,
		AnnualizedReturn: *wire.AnnualizedReturn,
		MaxDrawdown:      *wire.MaxDrawdown,
		WinProbability:   *wire.WinProbability,
		Trades:           trades,
	}, nil
}

// describe flattens validator errors into one message naming each field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "wireResponse.")
		if fe.Tag() == "required" {
			msgs[i] = field + " is missing"
		} else {
			msgs[i] = fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
