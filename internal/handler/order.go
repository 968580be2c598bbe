package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cafeteria-pos/internal/logger"
	"cafeteria-pos/internal/order"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type OrderLineRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required"`
}

type PlaceOrderRequest struct {
	Lines []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handlePlaceOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	lines := make([]order.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, order.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}

	o, err := h.service.PlaceOrder(r.Context(), lines)
	if err != nil {
		logger.FromCtx(r.Context()).Warn("place order failed", zap.Error(err))
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter *order.OrderFilterInput
	if from, to := q.Get("date_from"), q.Get("date_to"); from != "" || to != "" {
		filter = &order.OrderFilterInput{}
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &t
		}
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &t
		}
	}

	var sort *order.OrderSortInput
	if field := q.Get("sort"); field != "" {
		sort = &order.OrderSortInput{
			Field:     order.OrderSortField(field),
			Direction: order.SortDirection(q.Get("dir")),
		}
	}

	var limit, page *int32
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 32); err == nil {
		l := int32(v)
		limit = &l
	}
	if v, err := strconv.ParseInt(q.Get("page"), 10, 32); err == nil {
		p := int32(v)
		page = &p
	}

	orders, err := h.service.GetOrders(r.Context(), filter, sort, limit, page)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to list orders")
		return
	}

	if orders == nil {
		orders = []*order.Order{}
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return
	}

	o, err := h.service.GetOrderDetail(r.Context(), uint(id))
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}
