package server

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/tradelog/market"
)

// ValidationError is a bad query parameter; it maps to 400.
type ValidationError struct {
	Param string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Param + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validator handles validation logic separate from HTTP concerns
type Validator struct {
	symbolRegex *regexp.Regexp
}

var (
	validatorInstance *Validator
	validatorOnce     sync.Once
)

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		validatorInstance = &Validator{
			// Yahoo symbols: AAPL, TCS.NS, BRK-B, ^GSPC, EURUSD=X
			symbolRegex: regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9.\-=^]{0,19}$`),
		}
	})
	return validatorInstance
}

// Symbol sanitizes and checks a ticker symbol, falling back to def.
func (v *Validator) Symbol(raw, def string) (string, error) {
	s := sanitizeInput(raw)
	if s == "" {
		s = def
	}
	if !v.symbolRegex.MatchString(s) {
		return "", &ValidationError{Param: "symbol", Err: fmt.Errorf("invalid symbol %q", s)}
	}
	return strings.ToUpper(s), nil
}

// Interval checks the candle interval, falling back to def.
func (v *Validator) Interval(raw, def string) (string, error) {
	s := sanitizeInput(raw)
	if s == "" {
		s = def
	}
	if err := market.ValidateInterval(s); err != nil {
		return "", &ValidationError{Param: "interval", Err: err}
	}
	return s, nil
}

// PositiveInt parses a strictly positive integer, falling back to def.
func (v *Validator) PositiveInt(param, raw string, def int) (int, error) {
	s := sanitizeInput(raw)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 1000 {
		return 0, &ValidationError{Param: param, Err: errors.New("must be a whole number between 1 and 1000")}
	}
	return n, nil
}

// PositiveFloat parses a strictly positive number, falling back to def.
func (v *Validator) PositiveFloat(param, raw string, def float64) (float64, error) {
	s := sanitizeInput(raw)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !(f > 0) {
		return 0, &ValidationError{Param: param, Err: errors.New("must be a positive number")}
	}
	return f, nil
}

// Date parses YYYY-MM-DD or unix seconds. A bare date given as an end
// bound covers the whole day. Empty input yields the zero time.
func (v *Validator) Date(param, raw string, endOfDay bool) (time.Time, error) {
	s := sanitizeInput(raw)
	if s == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &ValidationError{Param: param, Err: fmt.Errorf("want YYYY-MM-DD or unix seconds, got %q", s)}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	if len(input) > 100 {
		input = input[:100]
	}
	return input
}
