// Package handler exposes the decision API endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leasing_crm_backend/internal/party/domain"
	"leasing_crm_backend/internal/tasks/service"
	"leasing_crm_backend/internal/tasks/transport"
	"leasing_crm_backend/platform/httpkit"
	"leasing_crm_backend/platform/validator"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidPartyID = "invalid party ID"
)

// Handler handles HTTP requests for the task decision engine.
type Handler struct {
	dispatcher *service.Dispatcher
	val        *validator.Validator
}

// New creates a new decision API handler.
func New(dispatcher *service.Dispatcher, val *validator.Validator) *Handler {
	return &Handler{dispatcher: dispatcher, val: val}
}

// IngestEvents receives a party event batch and runs a dispatch cycle.
// POST /api/v1/decision/parties/:id/events
func (h *Handler) IngestEvents(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPartyID, nil)
		return
	}

	var req transport.IngestEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	batch, err := req.ToDomain(time.Now())
	if httpkit.HandleError(c, err) {
		return
	}

	if err := h.dispatcher.IngestEvents(c.Request.Context(), partyID, batch, identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, transport.AcceptedResponse{Status: "accepted", Parties: 1})
}

// ProcessParties runs a dispatch cycle over the given parties.
// POST /api/v1/decision/tasks/process
func (h *Handler) ProcessParties(c *gin.Context) {
	var req transport.ProcessPartiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	h.dispatcher.ProcessParties(c.Request.Context(), req.PartyIDs, identity.UserID())
	httpkit.Accepted(c, transport.AcceptedResponse{Status: "accepted", Parties: len(req.PartyIDs)})
}

// CompleteTasks completes the named active tasks on demand.
// POST /api/v1/decision/tasks/complete
func (h *Handler) CompleteTasks(c *gin.Context) {
	h.settle(c, true)
}

// CancelTasks cancels the named active tasks on demand.
// POST /api/v1/decision/tasks/cancel
func (h *Handler) CancelTasks(c *gin.Context) {
	h.settle(c, false)
}

// CancelCategory bulk-cancels every active task in a category.
// POST /api/v1/decision/tasks/cancel-category
func (h *Handler) CancelCategory(c *gin.Context) {
	var req transport.CancelCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	category := domain.TaskCategory(req.Category)
	if !domain.IsKnownTaskCategory(category) {
		httpkit.Error(c, http.StatusBadRequest, "unknown task category", nil)
		return
	}

	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	h.dispatcher.CancelCategoryOnDemand(c.Request.Context(), req.PartyIDs, category)
	httpkit.Accepted(c, transport.AcceptedResponse{Status: "accepted", Parties: len(req.PartyIDs)})
}

func (h *Handler) settle(c *gin.Context, complete bool) {
	var req transport.SettleTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if complete {
		h.dispatcher.CompleteOnDemand(c.Request.Context(), req.PartyIDs, req.Names(), identity.UserID())
	} else {
		h.dispatcher.CancelOnDemand(c.Request.Context(), req.PartyIDs, req.Names(), identity.UserID())
	}
	httpkit.Accepted(c, transport.AcceptedResponse{Status: "accepted", Parties: len(req.PartyIDs)})
}
