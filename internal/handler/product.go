package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cafeteria-pos/internal/logger"
	"cafeteria-pos/internal/product"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Price    string `json:"price" validate:"required"`
	Stock    int    `json:"stock" validate:"gte=0"`
}

type ProductHandler struct {
	service  product.Service
	validate *validator.Validate
}

func NewProductHandler(service product.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleList)
	router.Post("/products", h.handleCreate)
	router.Get("/products/{id}", h.handleGet)
	router.Put("/products/{id}", h.handleUpdate)
	router.Delete("/products/{id}", h.handleDelete)
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	opts := product.ListOptions{}

	q := r.URL.Query()
	if v := q.Get("category"); v != "" {
		opts.Category = &v
	}
	if v := q.Get("search"); v != "" {
		opts.Search = &v
	}
	if q.Get("in_stock") == "true" {
		inStock := true
		opts.InStock = &inStock
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 32); err == nil {
		opts.Limit = int32(v)
	}
	if v, err := strconv.ParseInt(q.Get("page"), 10, 32); err == nil {
		opts.Page = int32(v)
	}

	products, err := h.service.GetList(r.Context(), opts)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to list products")
		return
	}

	if products == nil {
		products = []product.Product{}
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), p)
	if err != nil {
		logger.FromCtx(r.Context()).Warn("create product failed", zap.Error(err))
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = id

	updated, err := h.service.Update(r.Context(), p)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (product.Product, bool) {
	var req ProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return product.Product{}, false
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return product.Product{}, false
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid price")
		return product.Product{}, false
	}

	return product.Product{
		Name:     req.Name,
		Category: req.Category,
		Price:    price,
		Stock:    req.Stock,
	}, true
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}
