package form

import (
	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/core"
)

// Build assembles a request for the constant price threshold strategy.
//
// Submission is blocked when any field failed to parse or the request
// breaks a structural rule (negative cash, negative holding days,
// non-positive quantity). Date ordering is left to the service.
func Build(f Fields) (backtest.BacktestRequest, error) {
	if errs := f.Errors(); len(errs) > 0 {
		return backtest.BacktestRequest{}, core.WrapError(core.ErrInvalidInput, errs)
	}

	req := backtest.BacktestRequest{
		Symbols:      f.Symbols.Value,
		StartDate:    f.StartDate.Value,
		EndDate:      f.EndDate.Value,
		StartingCash: f.StartingCash.Value,
		Strategy:     backtest.StrategyConstantPriceThreshold,
		StrategyParams: backtest.StrategyParams{
			Threshold:   f.Threshold.Value,
			DaysToClose: f.DaysToClose.Value,
			Quantity:    f.Quantity.Value,
		},
	}

	if err := validate.Struct(req); err != nil {
		return backtest.BacktestRequest{}, core.WrapError(core.ErrInvalidInput, fromValidator(err))
	}
	return req, nil
}

// BuildFromValues parses and builds in one step.
func BuildFromValues(v Values) (backtest.BacktestRequest, error) {
	return Build(Parse(v))
}
