package handler

import (
	"encoding/json"
	"net/http"

	"rentdesk/internal/rentals/service"
	httputil "rentdesk/pkg/http"
	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RentRequestHandler struct {
	service service.RentRequestService
	log     *logger.Logger
}

func NewRentRequestHandler(service service.RentRequestService, log *logger.Logger) *RentRequestHandler {
	return &RentRequestHandler{
		service: service,
		log:     log,
	}
}

// Submit accepts the booking form. A form carrying a rentId rewrites the
// referenced booking instead of creating a new one.
func (h *RentRequestHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var values model.RentFormValues
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Submit", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	record, err := h.service.Submit(r.Context(), &values)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Submit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, record); err != nil {
		h.log.Error("failed to write created response", "handler", "Submit", "operation", "WriteCreated", "error", err)
	}
}

type rentDetailResponse struct {
	Record *model.RentRequest    `json:"record"`
	Form   *model.RentFormValues `json:"form,omitempty"`
}

// GetByID returns the record plus the stored payload rebuilt into form
// values, so the manage page can prefill regardless of which payload
// shape the record carries.
func (h *RentRequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByID", "operation", "WriteJSON", "error", err)
		}
		return
	}

	record, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	response := rentDetailResponse{Record: record}
	if payload, err := h.service.ParsedPayload(record); err == nil {
		form := payload.FormValues()
		response.Form = &form
	}

	if err := httputil.WriteSuccess(w, response); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RentRequestHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	records, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, records, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *RentRequestHandler) Cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.CancelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Cancel", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Cancel(r.Context(), input); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RentRequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rentals", h.Submit)
	router.GET("/api/v1/rentals", h.GetAll)
	router.GET("/api/v1/rentals/:id", h.GetByID)
	router.POST("/api/v1/manage/cancel", h.Cancel)
}
