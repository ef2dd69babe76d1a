package pricing

import (
	"math"
	"strings"
)

// Request carries the inputs of one quote. It is immutable and never
// persisted; Context is optional.
type Request struct {
	CostPrice    float64    `json:"cost_price"`
	ShippingCost float64    `json:"shipping_cost"`
	Channel      string     `json:"channel"`
	Context      *Overrides `json:"context,omitempty"`
}

func (r Request) overrides() Overrides {
	if r.Context == nil {
		return Overrides{}
	}
	return *r.Context
}

// Service is the quoting entry point: it validates requests, resolves the
// channel calculator and produces complete breakdowns. It holds no mutable
// state; swap the whole Service to replace the policy table.
type Service struct {
	factory *Factory
}

// NewService builds a Service from a policy table, validating every policy.
func NewService(policies map[Channel]Policy) (*Service, error) {
	factory, err := NewFactory(policies)
	if err != nil {
		return nil, err
	}
	return &Service{factory: factory}, nil
}

// Channels returns the sorted supported channel identifiers.
func (s *Service) Channels() []string { return s.factory.Channels() }

// Quote produces the full breakdown for a request. Field problems are
// reported first as a *ValidationError covering every bad field at once;
// an unknown channel then surfaces as *UnsupportedChannelError, so that a
// bad cost is reported the same way whatever the channel said.
func (s *Service) Quote(req Request) (*Breakdown, error) {
	if fields := validateFields(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	calc, err := s.factory.Get(req.Channel)
	if err != nil {
		return nil, err
	}

	return calc.Breakdown(req.CostPrice, req.ShippingCost, req.overrides())
}

// Validate checks a request without quoting it. Unlike Quote, the channel
// membership check is folded into the field errors, so callers get one
// flat pre-flight list.
func (s *Service) Validate(req Request) []FieldError {
	fields := validateFields(req)
	if req.Channel != "" && !s.factory.IsSupported(req.Channel) {
		fields = append(fields, FieldError{
			Field:   "channel",
			Message: "canal não suportado, use um de: " + strings.Join(s.factory.Channels(), ", "),
		})
	}
	return fields
}

// validateFields collects every problem with the numeric inputs and the
// override fields. Channel membership is checked separately.
func validateFields(req Request) []FieldError {
	var fields []FieldError
	add := func(field, message string) {
		fields = append(fields, FieldError{Field: field, Message: message})
	}

	switch {
	case !isFinite(req.CostPrice):
		add("cost_price", "deve ser um número finito")
	case req.CostPrice <= 0:
		add("cost_price", "deve ser maior que 0")
	}

	switch {
	case !isFinite(req.ShippingCost):
		add("shipping_cost", "deve ser um número finito")
	case req.ShippingCost < 0:
		add("shipping_cost", "não pode ser negativo")
	}

	if req.Channel == "" {
		add("channel", "é obrigatório")
	}

	if req.Context != nil {
		validateOverrides(*req.Context, add)
	}
	return fields
}

func validateOverrides(ov Overrides, add func(field, message string)) {
	if ov.Markup != nil && (!isFinite(*ov.Markup) || *ov.Markup < 1) {
		add("context.markup", "deve ser um número maior ou igual a 1")
	}
	if ov.CommissionPercent != nil && !isRate(*ov.CommissionPercent) {
		add("context.commission_percent", "deve estar entre 0 e 1 (exclusivo)")
	}
	if ov.TaxRate != nil && !isRate(*ov.TaxRate) {
		add("context.tax_rate", "deve estar entre 0 e 1 (exclusivo)")
	}
	if ov.AggressiveDiscount != nil && !isRate(*ov.AggressiveDiscount) {
		add("context.aggressive_discount", "deve estar entre 0 e 1 (exclusivo)")
	}
	if ov.PromoDiscount != nil && !isRate(*ov.PromoDiscount) {
		add("context.promo_discount", "deve estar entre 0 e 1 (exclusivo)")
	}
	switch RoundingRule(ov.Rounding) {
	case "", Round99, RoundNone:
	default:
		add("context.rounding", `deve ser "99" ou "none"`)
	}
	if len(ov.Category) > 80 {
		add("context.category", "deve ter no máximo 80 caracteres")
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isRate(v float64) bool {
	return isFinite(v) && v >= 0 && v < 1
}

// PolicySummary is the read-only introspection view of one channel policy.
type PolicySummary struct {
	Name               string         `json:"name"`
	Family             string         `json:"family"`
	Markup             float64        `json:"markup,omitempty"`
	CommissionMin      float64        `json:"commission_min,omitempty"`
	CommissionMax      float64        `json:"commission_max,omitempty"`
	CommissionDefault  float64        `json:"commission_default,omitempty"`
	MarketingRate      float64        `json:"marketing_rate,omitempty"`
	TaxRate            float64        `json:"tax_rate"`
	MinMargin          float64        `json:"min_margin"`
	AggressiveDiscount float64        `json:"aggressive_discount"`
	PromoDiscount      float64        `json:"promo_discount"`
	WholesaleTiers     []TierDiscount `json:"wholesale_tiers"`
	Rounding           RoundingRule   `json:"rounding"`
}

// Policies returns policy summaries keyed by channel identifier. With a
// non-empty channel argument only that channel is returned; an unknown one
// yields *UnsupportedChannelError.
func (s *Service) Policies(channel string) (map[string]PolicySummary, error) {
	if channel != "" {
		calc, err := s.factory.Get(channel)
		if err != nil {
			return nil, err
		}
		p := calc.Policy()
		return map[string]PolicySummary{string(p.Channel): summarize(p)}, nil
	}

	out := make(map[string]PolicySummary, len(s.factory.calculators))
	for id, calc := range s.factory.calculators {
		out[string(id)] = summarize(calc.Policy())
	}
	return out, nil
}

func summarize(p Policy) PolicySummary {
	summary := PolicySummary{
		Name:               p.Name,
		Family:             "markup",
		Markup:             p.Markup,
		TaxRate:            p.TaxRate,
		MinMargin:          p.MinMargin,
		AggressiveDiscount: p.AggressiveDiscount,
		PromoDiscount:      p.PromoDiscount,
		WholesaleTiers:     append([]TierDiscount(nil), p.Tiers...),
		Rounding:           p.Rounding,
	}
	if p.CommissionDriven() {
		summary.Family = "commission"
		summary.CommissionMin = p.CommissionMin
		summary.CommissionMax = p.CommissionMax
		summary.CommissionDefault = p.defaultCommission()
		summary.MarketingRate = p.MarketingRate
	}
	return summary
}
