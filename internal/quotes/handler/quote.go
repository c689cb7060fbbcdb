package handler

import (
	"encoding/json"
	"net/http"

	"rentdesk/internal/quotes/service"
	httputil "rentdesk/pkg/http"
	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ContactQuoteHandler struct {
	service service.ContactQuoteService
	log     *logger.Logger
}

func NewContactQuoteHandler(service service.ContactQuoteService, log *logger.Logger) *ContactQuoteHandler {
	return &ContactQuoteHandler{
		service: service,
		log:     log,
	}
}

func (h *ContactQuoteHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var q model.ContactQuote
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Submit", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Submit(r.Context(), &q); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Submit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, q); err != nil {
		h.log.Error("failed to write created response", "handler", "Submit", "operation", "WriteCreated", "error", err)
	}
}

func (h *ContactQuoteHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByID", "operation", "WriteJSON", "error", err)
		}
		return
	}

	q, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, q); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ContactQuoteHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	quotes, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, quotes, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

type sendOfferRequest struct {
	BookingRequestData json.RawMessage `json:"bookingRequestData"`
}

func (h *ContactQuoteHandler) SendOffer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req sendOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SendOffer", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.SendOffer(r.Context(), id, string(req.BookingRequestData)); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SendOffer", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ContactQuoteHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/quotes", h.Submit)
	router.GET("/api/v1/quotes", h.GetAll)
	router.GET("/api/v1/quotes/:id", h.GetByID)
	router.POST("/api/v1/quotes/:id/offer", h.SendOffer)
}
