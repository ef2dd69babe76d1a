package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the engine's failure modes. Callers match them with
// errors.Is; the typed wrappers below carry the details.
var (
	ErrUnsupportedChannel = errors.New("unsupported channel")
	ErrInfeasibleRates    = errors.New("infeasible channel rates")
	ErrInvalidPolicy      = errors.New("invalid channel policy")
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every invalid field found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// UnsupportedChannelError reports an unknown channel identifier together
// with the channels the engine does support.
type UnsupportedChannelError struct {
	Channel   string
	Supported []string
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("unsupported channel %q, supported channels: %s",
		e.Channel, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedChannelError) Unwrap() error { return ErrUnsupportedChannel }

// InfeasibleRatesError means the combined channel rates reach or exceed
// 100% of the price, so no positive finite price can cover the cost.
type InfeasibleRatesError struct {
	Channel Channel
	RateSum float64
}

func (e *InfeasibleRatesError) Error() string {
	return fmt.Sprintf("channel %s: combined rates %.4f leave no room for a positive price", e.Channel, e.RateSum)
}

func (e *InfeasibleRatesError) Unwrap() error { return ErrInfeasibleRates }

// InvalidPolicyError reports a misconfigured channel policy. It is a
// configuration fault, not a request fault.
type InvalidPolicyError struct {
	Channel  Channel
	Problems []string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy for channel %q: %s", e.Channel, strings.Join(e.Problems, "; "))
}

func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }
