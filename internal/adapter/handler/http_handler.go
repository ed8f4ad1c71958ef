package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/core/service"
)

type HTTPHandler struct {
	inventoryService *service.InventoryService
}

type CreateInventoryHTTPRequest struct {
	ProductUID        string `json:"product_uid"`
	QuantityAvailable *int   `json:"quantity_available"`
	ReservedQuantity  int    `json:"reserved_quantity"`
}

type UpdateInventoryHTTPRequest struct {
	QuantityAvailable *int `json:"quantity_available"`
}

type StockHTTPRequest struct {
	RequestID  string `json:"request_id"`
	ProductUID string `json:"product_uid"`
	Amount     int    `json:"amount"`
}

type InventoryHTTPBody struct {
	ID                int64     `json:"id"`
	ProductUID        string    `json:"product_uid"`
	QuantityAvailable int       `json:"quantity_available"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type InventoryHTTPResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message,omitempty"`
	Inventory *InventoryHTTPBody `json:"inventory,omitempty"`
}

func NewHTTPHandler(inventoryService *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{inventoryService: inventoryService}
}

func (h *HTTPHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/inventory", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/reserve", h.Reserve)
		r.Post("/release", h.Release)
		r.Get("/{product_uid}", h.Get)
		r.Put("/{product_uid}", h.Update)
	})
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInventoryHTTPRequest
	if !decode(w, r, &req) {
		return
	}
	if req.QuantityAvailable == nil {
		writeJSON(w, http.StatusUnprocessableEntity, InventoryHTTPResponse{Message: "quantity_available is required"})
		return
	}

	inv, err := h.inventoryService.Create(r.Context(), req.ProductUID, *req.QuantityAvailable, req.ReservedQuantity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, InventoryHTTPResponse{
		Success:   true,
		Message:   "Inventory created",
		Inventory: toHTTPBody(inv),
	})
}

func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.inventoryService.GetByUID(r.Context(), chi.URLParam(r, "product_uid"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InventoryHTTPResponse{Success: true, Inventory: toHTTPBody(inv)})
}

func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInventoryHTTPRequest
	if !decode(w, r, &req) {
		return
	}
	if req.QuantityAvailable == nil {
		writeJSON(w, http.StatusUnprocessableEntity, InventoryHTTPResponse{Message: "quantity_available is required"})
		return
	}

	if err := h.inventoryService.SetAvailable(r.Context(), chi.URLParam(r, "product_uid"), *req.QuantityAvailable); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InventoryHTTPResponse{Success: true, Message: "Inventory updated"})
}

func (h *HTTPHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req StockHTTPRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.inventoryService.Reserve(r.Context(), req.RequestID, req.ProductUID, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InventoryHTTPResponse{Success: true, Message: "Inventory reserved"})
}

func (h *HTTPHandler) Release(w http.ResponseWriter, r *http.Request) {
	var req StockHTTPRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.inventoryService.Release(r.Context(), req.RequestID, req.ProductUID, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InventoryHTTPResponse{Success: true, Message: "Inventory released"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AccessLog logs one line per request once the response is written.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, InventoryHTTPResponse{Message: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status, message := httpStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, InventoryHTTPResponse{Message: message})
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidProductUID),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, rootMessage(err)
	case errors.Is(err, domain.ErrInventoryNotFound):
		return http.StatusNotFound, "Inventory not found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "Insufficient stock"
	case errors.Is(err, domain.ErrInsufficientReservation):
		return http.StatusConflict, "Insufficient reserved quantity"
	case errors.Is(err, domain.ErrQuantityOverflow):
		return http.StatusConflict, "Quantity limit exceeded"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "Duplicate request"
	case errors.Is(err, domain.ErrInventoryExists):
		return http.StatusConflict, "Inventory already exists"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func rootMessage(err error) string {
	for _, target := range []error{domain.ErrInvalidProductUID, domain.ErrInvalidAmount, domain.ErrInvalidQuantity} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func toHTTPBody(inv *domain.Inventory) *InventoryHTTPBody {
	return &InventoryHTTPBody{
		ID:                inv.ID,
		ProductUID:        inv.ProductUID,
		QuantityAvailable: inv.QuantityAvailable,
		ReservedQuantity:  inv.ReservedQuantity,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
