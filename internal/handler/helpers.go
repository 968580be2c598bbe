package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"cafeteria-pos/internal/logger"
	"cafeteria-pos/internal/order"
	"cafeteria-pos/internal/product"

	"go.uber.org/zap"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.L().Error("failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		logger.L().Error("failed to write JSON response", zap.Error(err))
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, order.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, product.ErrEmptyName),
		errors.Is(err, product.ErrEmptyCategory),
		errors.Is(err, product.ErrNegativePrice),
		errors.Is(err, product.ErrNegativeStock):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
