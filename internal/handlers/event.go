package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/eventgate/eventgate/internal/services"
	"github.com/eventgate/eventgate/pkg/response"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{
		eventService: services.NewEventService(db),
	}
}

func (h *EventHandler) List(c *gin.Context) {
	var req services.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.eventService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	eventID := c.Param("event_id")

	ev, err := h.eventService.Get(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, ev)
}

func (h *EventHandler) Ingest(c *gin.Context) {
	var req services.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ev, err := h.eventService.Ingest(&req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEvent) {
			response.Error(c, response.NewConflict("event id already exists"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Created(c, ev)
}

func (h *EventHandler) Stats(c *gin.Context) {
	stats, err := h.eventService.GetStats()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
