package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
)

// dateLayouts are the accepted calendar date inputs. "2006-1-2" also
// accepts zero padded months and days.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	time.RFC3339,
}

// Field is a parsed form value: either valid or invalid with a reason.
type Field[T any] struct {
	Value  T
	Reason string
	Valid  bool
}

func valid[T any](v T) Field[T] {
	return Field[T]{Value: v, Valid: true}
}

func invalid[T any](reason string) Field[T] {
	return Field[T]{Reason: reason}
}

// Fields holds every form field after parsing.
type Fields struct {
	Symbols      Field[[]string]
	StartDate    Field[backtest.Date]
	EndDate      Field[backtest.Date]
	StartingCash Field[float64]
	Threshold    Field[float64]
	DaysToClose  Field[int]
	Quantity     Field[int]
}

// Parse coerces each raw value to its target type. It never fails as a
// whole; problems are reported per field.
func Parse(v Values) Fields {
	return Fields{
		Symbols:      parseSymbols(v.Symbols),
		StartDate:    parseDate(v.StartDate),
		EndDate:      parseDate(v.EndDate),
		StartingCash: parseNumber(v.StartingCash),
		Threshold:    parseNumber(v.Threshold),
		DaysToClose:  parseInteger(v.DaysToClose),
		Quantity:     parseInteger(v.Quantity),
	}
}

// Errors returns the invalid fields in form order, or nil.
func (f Fields) Errors() ValidationErrors {
	var errs ValidationErrors
	add := func(name string, ok bool, reason string) {
		if !ok {
			errs = append(errs, FieldError{Field: name, Reason: reason})
		}
	}
	add(FieldSymbols, f.Symbols.Valid, f.Symbols.Reason)
	add(FieldStartDate, f.StartDate.Valid, f.StartDate.Reason)
	add(FieldEndDate, f.EndDate.Valid, f.EndDate.Reason)
	add(FieldStartingCash, f.StartingCash.Valid, f.StartingCash.Reason)
	add(FieldThreshold, f.Threshold.Valid, f.Threshold.Reason)
	add(FieldDaysToClose, f.DaysToClose.Valid, f.DaysToClose.Reason)
	add(FieldQuantity, f.Quantity.Valid, f.Quantity.Reason)
	return errs
}

// parseSymbols splits on commas and trims each piece. Empty pieces are
// kept in place; the service receives exactly what was typed.
func parseSymbols(raw string) Field[[]string] {
	if strings.TrimSpace(raw) == "" {
		return invalid[[]string]("is required")
	}

	pieces := strings.Split(raw, ",")
	symbols := make([]string, len(pieces))
	nonEmpty := 0
	for i, p := range pieces {
		symbols[i] = strings.TrimSpace(p)
		if symbols[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return invalid[[]string]("must contain at least one symbol")
	}
	return valid(symbols)
}

func parseDate(raw string) Field[backtest.Date] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid[backtest.Date]("is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return valid(backtest.NewDate(t))
		}
	}
	return invalid[backtest.Date](fmt.Sprintf("%q is not a date (expected year-month-day)", raw))
}

func parseNumber(raw string) Field[float64] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid[float64]("is required")
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return invalid[float64](fmt.Sprintf("%q is not a number", raw))
	}
	return valid(n)
}

func parseInteger(raw string) Field[int] {
	n := parseNumber(raw)
	if !n.Valid {
		return invalid[int](n.Reason)
	}
	if n.Value != math.Trunc(n.Value) || math.Abs(n.Value) > math.MaxInt32 {
		return invalid[int](fmt.Sprintf("%q is not a whole number", strings.TrimSpace(raw)))
	}
	return valid(int(n.Value))
}
