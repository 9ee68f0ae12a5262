package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"stayledger/internal/properties/service"
	apperrors "stayledger/pkg/errors"
	httputil "stayledger/pkg/http"
	"stayledger/pkg/logger"
	"stayledger/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PropertyHandler struct {
	service service.PropertyService
	log     *logger.Logger
}

func NewPropertyHandler(service service.PropertyService, log *logger.Logger) *PropertyHandler {
	return &PropertyHandler{
		service: service,
		log:     log,
	}
}

type AvailabilityResponse struct {
	PropertyID uint64 `json:"property_id"`
	CheckIn    uint64 `json:"check_in"`
	Checkout   uint64 `json:"checkout"`
	Available  bool   `json:"available"`
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := httputil.ExtractAccountID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.PropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Code:  apperrors.CodeInvalidInput,
			Error: "Invalid request body",
		})
		return
	}

	property, err := h.service.Create(r.Context(), owner, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, property)
}

func (h *PropertyHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractUintParam(ps, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	property, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, property)
}

func (h *PropertyHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	properties, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, properties, total, limit, int(offset))
}

func (h *PropertyHandler) GetByOwner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	owner := model.AccountID(ps.ByName("id"))

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	properties, total, err := h.service.GetByOwner(r.Context(), owner, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, properties, total, limit, int(offset))
}

func (h *PropertyHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractAccountID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id, err := httputil.ExtractUintParam(ps, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), id, requester); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ExtractUintParam(ps, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	query := r.URL.Query()
	checkInStr := query.Get("check_in")
	checkoutStr := query.Get("check_out")
	if checkInStr == "" || checkoutStr == "" {
		httputil.WriteError(w, apperrors.InvalidInput("check_in and check_out query parameters are required"))
		return
	}

	checkIn, err := strconv.ParseUint(checkInStr, 10, 64)
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid check_in parameter: "+checkInStr))
		return
	}
	checkout, err := strconv.ParseUint(checkoutStr, 10, 64)
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid check_out parameter: "+checkoutStr))
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), id, checkIn, checkout)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, AvailabilityResponse{
		PropertyID: id,
		CheckIn:    checkIn,
		Checkout:   checkout,
		Available:  available,
	})
}

func (h *PropertyHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/properties", h.Create)
	router.GET("/api/v1/properties", h.GetAll)
	router.GET("/api/v1/properties/id/:id", h.GetByID)
	router.POST("/api/v1/properties/id/:id/deactivate", h.Deactivate)
	router.GET("/api/v1/properties/id/:id/availability", h.Availability)
	router.GET("/api/v1/properties/owner/:id", h.GetByOwner)
}
