package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/minhngo/voucher-sale/internal/core/service"
)

type HTTPHandler struct {
	seckill *service.SeckillService
	catalog *service.CatalogService
}

type SeckillHTTPRequest struct {
	VoucherID int64 `json:"voucher_id"`
	UserID    int64 `json:"user_id"`
}

type SeckillHTTPResponse struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHTTPHandler(seckill *service.SeckillService, catalog *service.CatalogService) *HTTPHandler {
	return &HTTPHandler{seckill: seckill, catalog: catalog}
}

func (h *HTTPHandler) Seckill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SeckillHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SeckillHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.VoucherID <= 0 || req.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, SeckillHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	orderID, err := h.seckill.Purchase(r.Context(), req.VoucherID, req.UserID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		switch {
		case errors.Is(err, service.ErrVoucherNotFound):
			status = http.StatusNotFound
			message = "voucher not found"
		case errors.Is(err, service.ErrSaleNotStarted):
			status = http.StatusForbidden
			message = "sale not started"
		case errors.Is(err, service.ErrSaleEnded):
			status = http.StatusForbidden
			message = "sale ended"
		case errors.Is(err, service.ErrSoldOut):
			status = http.StatusGone
			message = "sold out"
		case errors.Is(err, service.ErrAlreadyPurchased):
			status = http.StatusConflict
			message = "already purchased"
		}

		writeJSON(w, status, SeckillHTTPResponse{
			Success: false,
			Message: message,
		})
		return
	}

	writeJSON(w, http.StatusOK, SeckillHTTPResponse{
		Success: true,
		OrderID: orderID,
	})
}

func (h *HTTPHandler) Shop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid shop id", http.StatusBadRequest)
		return
	}

	shop, err := h.catalog.GetShop(r.Context(), id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if shop == nil {
		http.Error(w, "shop not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, shop)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
