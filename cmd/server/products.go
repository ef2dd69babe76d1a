package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"precificador/internal/catalog"
	"precificador/internal/pricing"
)

type productsResponse struct {
	Products []catalog.Product `json:"products"`
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	products, err := s.products.Search(query)
	if err != nil {
		logger.Error().Err(err).Msg("list products")
		renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}

	renderJSON(w, http.StatusOK, productsResponse{Products: products})
}

func (s *server) handleProductGet(w http.ResponseWriter, r *http.Request) {
	product, err := s.products.GetBySKU(chi.URLParam(r, "sku"))
	if errors.Is(err, catalog.ErrNotFound) {
		renderJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "produto não encontrado"})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("get product")
		renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}

	renderJSON(w, http.StatusOK, product)
}

func (s *server) handleProductUpsert(w http.ResponseWriter, r *http.Request) {
	var product catalog.Product
	if err := decodeJSON(r, &product); err != nil {
		renderJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}
	product.SKU = strings.TrimSpace(product.SKU)
	product.Title = strings.TrimSpace(product.Title)

	if fields := validateProduct(product); len(fields) > 0 {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation", Fields: fields})
		return
	}

	created, err := s.products.Upsert(product)
	if err != nil {
		logger.Error().Err(err).Msg("upsert product")
		renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}

	stored, err := s.products.GetBySKU(product.SKU)
	if err != nil {
		logger.Error().Err(err).Msg("read back product")
		renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	renderJSON(w, status, stored)
}

func validateProduct(p catalog.Product) []pricing.FieldError {
	var fields []pricing.FieldError
	add := func(field, message string) {
		fields = append(fields, pricing.FieldError{Field: field, Message: message})
	}

	if p.SKU == "" {
		add("sku", "é obrigatório")
	}
	if p.Title == "" {
		add("title", "é obrigatório")
	}
	if p.CostPrice <= 0 {
		add("cost_price", "deve ser maior que 0")
	}
	nonNegative := []struct {
		field string
		value float64
	}{
		{"height_cm", p.HeightCM},
		{"width_cm", p.WidthCM},
		{"length_cm", p.LengthCM},
		{"weight_kg", p.WeightKG},
		{"list_price", p.ListPrice},
		{"promo_price", p.PromoPrice},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			add(nn.field, "não pode ser negativo")
		}
	}

	return fields
}

type productQuoteResponse struct {
	Product   catalog.Product    `json:"product"`
	Breakdown *pricing.Breakdown `json:"breakdown"`
}

// handleProductQuote prices a stored product on a channel. The engine
// only ever receives numbers; this handler is the glue that looks the
// product up and, for mercadolivre without an explicit shipping_cost,
// estimates the seller-side shipping from the product weight.
func (s *server) handleProductQuote(w http.ResponseWriter, r *http.Request) {
	product, err := s.products.GetBySKU(chi.URLParam(r, "sku"))
	if errors.Is(err, catalog.ErrNotFound) {
		renderJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "produto não encontrado"})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("get product")
		renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  "validation",
			Fields: []pricing.FieldError{{Field: "channel", Message: "é obrigatório"}},
		})
		return
	}

	shippingCost := 0.0
	estimated := false
	if raw := r.URL.Query().Get("shipping_cost"); raw != "" {
		var fields []pricing.FieldError
		shippingCost = queryFloat(r, "shipping_cost", &fields)
		if len(fields) == 0 && shippingCost < 0 {
			fields = append(fields, pricing.FieldError{Field: "shipping_cost", Message: "não pode ser negativo"})
		}
		if len(fields) > 0 {
			renderJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation", Fields: fields})
			return
		}
	} else if pricing.Normalize(channel) == pricing.ChannelMercadoLivre {
		shippingCost = s.shipping.Estimate(product.CostPrice, product.WeightKG)
		estimated = true
	}

	breakdown, err := s.engine.Load().Quote(pricing.Request{
		CostPrice:    product.CostPrice,
		ShippingCost: shippingCost,
		Channel:      channel,
	})
	if err != nil {
		renderPricingError(w, err)
		return
	}

	if estimated {
		breakdown.Notes = append(breakdown.Notes,
			fmt.Sprintf("Frete estimado pela tabela do Mercado Livre: R$ %.2f", shippingCost))
	}

	renderJSON(w, http.StatusOK, productQuoteResponse{Product: product, Breakdown: breakdown})
}
