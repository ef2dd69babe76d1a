package main

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey guards mutating routes. With no key configured the guard
// is disabled so local setups keep working; config warns about that.
func (s *server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next(w, r)
			return
		}

		provided := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
			renderJSON(w, http.StatusUnauthorized, errorBody{
				Error:   "unauthorized",
				Message: "chave de API inválida",
			})
			return
		}

		next(w, r)
	}
}
