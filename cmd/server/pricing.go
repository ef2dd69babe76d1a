package main

import (
	"net/http"
	"strconv"

	"precificador/internal/pricing"
)

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := decodeJSON(r, &req); err != nil {
		renderJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	breakdown, err := s.engine.Load().Quote(req)
	if err != nil {
		renderPricingError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, breakdown)
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := decodeJSON(r, &req); err != nil {
		renderJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	if fields := s.engine.Load().Validate(req); len(fields) > 0 {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation", Fields: fields})
		return
	}

	renderJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type policiesResponse struct {
	SupportedChannels []string                         `json:"supported_channels"`
	Policies          map[string]pricing.PolicySummary `json:"policies"`
}

func (s *server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	engine := s.engine.Load()

	policies, err := engine.Policies(r.URL.Query().Get("channel"))
	if err != nil {
		renderPricingError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, policiesResponse{
		SupportedChannels: engine.Channels(),
		Policies:          policies,
	})
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reloadPolicies(); err != nil {
		logger.Error().Err(err).Msg("policy reload failed")
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "invalid_policy",
			Message: err.Error(),
		})
		return
	}

	logger.Info().Msg("channel policies reloaded")
	renderJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"channels": s.engine.Load().Channels(),
	})
}

type shippingEstimateResponse struct {
	CostPrice    float64 `json:"cost_price"`
	WeightKG     float64 `json:"weight_kg"`
	BasePrice    float64 `json:"base_price"`
	ShippingCost float64 `json:"shipping_cost"`
}

func (s *server) handleShippingEstimate(w http.ResponseWriter, r *http.Request) {
	var fields []pricing.FieldError
	costPrice := queryFloat(r, "cost_price", &fields)
	weightKG := queryFloat(r, "weight_kg", &fields)
	if len(fields) == 0 {
		if costPrice <= 0 {
			fields = append(fields, pricing.FieldError{Field: "cost_price", Message: "deve ser maior que 0"})
		}
		if weightKG < 0 {
			fields = append(fields, pricing.FieldError{Field: "weight_kg", Message: "não pode ser negativo"})
		}
	}
	if len(fields) > 0 {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation", Fields: fields})
		return
	}

	renderJSON(w, http.StatusOK, shippingEstimateResponse{
		CostPrice:    costPrice,
		WeightKG:     weightKG,
		BasePrice:    s.shipping.BasePrice(costPrice),
		ShippingCost: s.shipping.Estimate(costPrice, weightKG),
	})
}

func queryFloat(r *http.Request, field string, fields *[]pricing.FieldError) float64 {
	raw := r.URL.Query().Get(field)
	if raw == "" {
		*fields = append(*fields, pricing.FieldError{Field: field, Message: "é obrigatório"})
		return 0
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*fields = append(*fields, pricing.FieldError{Field: field, Message: "deve ser numérico"})
		return 0
	}
	return value
}
