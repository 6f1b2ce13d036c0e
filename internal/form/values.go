// Package form turns raw backtest form input into a service request.
package form

import (
	"net/url"

	"github.com/creasty/defaults"
)

// Form field names, shared by the HTML form and the CLI flags.
const (
	FieldSymbols      = "symbols"
	FieldStartDate    = "startDate"
	FieldEndDate      = "endDate"
	FieldStartingCash = "startingCash"
	FieldThreshold    = "threshold"
	FieldDaysToClose  = "daysToClose"
	FieldQuantity     = "quantity"
)

// FieldOrder lists the fields in the order they appear on the form.
var FieldOrder = []string{
	FieldSymbols,
	FieldStartDate,
	FieldEndDate,
	FieldStartingCash,
	FieldThreshold,
	FieldDaysToClose,
	FieldQuantity,
}

// Values holds the raw, unparsed form input.
type Values struct {
	Symbols      string `default:"NVDA,GOOGL"`
	StartDate    string `default:"2024-1-1"`
	EndDate      string `default:"2025-1-1"`
	StartingCash string `default:"1000"`
	Threshold    string `default:"140"`
	DaysToClose  string `default:"10"`
	Quantity     string `default:"5"`
}

// DefaultValues returns the values an unmodified form submits.
func DefaultValues() Values {
	var v Values
	if err := defaults.Set(&v); err != nil {
		// only fails on malformed tags
		panic(err)
	}
	return v
}

// ValuesFromForm reads the named fields from a submitted form. Missing
// fields stay empty.
func ValuesFromForm(f url.Values) Values {
	return Values{
		Symbols:      f.Get(FieldSymbols),
		StartDate:    f.Get(FieldStartDate),
		EndDate:      f.Get(FieldEndDate),
		StartingCash: f.Get(FieldStartingCash),
		Threshold:    f.Get(FieldThreshold),
		DaysToClose:  f.Get(FieldDaysToClose),
		Quantity:     f.Get(FieldQuantity),
	}
}

// Get returns the raw value of the named field.
func (v Values) Get(name string) string {
	switch name {
	case FieldSymbols:
		return v.Symbols
	case FieldStartDate:
		return v.StartDate
	case FieldEndDate:
		return v.EndDate
	case FieldStartingCash:
		return v.StartingCash
	case FieldThreshold:
		return v.Threshold
	case FieldDaysToClose:
		return v.DaysToClose
	case FieldQuantity:
		return v.Quantity
	}
	return ""
}
