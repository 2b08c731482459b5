package http

import (
	"net/http"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
	"meetsignal/pkg/errors"
	"meetsignal/pkg/validation"

	"github.com/gin-gonic/gin"
)

// ActionHandler exposes the request/response half of the signaling
// surface: every moderation, room and chat operation plus the opaque
// negotiation relay goes through POST /actions.
type ActionHandler struct {
	router ports.RouterService
	store  ports.SessionStore
}

func NewActionHandler(router ports.RouterService, store ports.SessionStore) *ActionHandler {
	return &ActionHandler{
		router: router,
		store:  store,
	}
}

// SetupRoutes registers the action routes on an authenticated group.
func (h *ActionHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/actions", h.DispatchAction)
	api.GET("/meetings/:id/recording-permission", h.GetRecordingPermission)
}

func (h *ActionHandler) DispatchAction(c *gin.Context) {
	var req domain.ActionRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if req.Action == "" {
		c.Error(errors.NewInvalidInputError("action is required"))
		return
	}
	if err := validation.ValidateMeetingID(string(req.MeetingID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	actor := actorFromContext(c)
	result, err := h.router.Dispatch(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecordingPermission answers the caller's own "may I record"
// question for a meeting.
func (h *ActionHandler) GetRecordingPermission(c *gin.Context) {
	meetingID := domain.MeetingID(c.Param("id"))
	if err := validation.ValidateMeetingID(string(meetingID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if !h.store.Exists(meetingID) {
		c.Error(domain.ErrSessionNotFound)
		return
	}

	actor := actorFromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"meetingId": meetingID,
		"allowed":   h.store.CanRecord(meetingID, actor),
	})
}

// actorFromContext rebuilds the actor from the fields the auth
// middleware stored.
func actorFromContext(c *gin.Context) domain.Actor {
	actor := domain.Actor{}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(domain.UserID); ok {
			actor.UserID = id
		}
	}
	if v, ok := c.Get("username"); ok {
		if name, ok := v.(string); ok {
			actor.Username = name
		}
	}
	if v, ok := c.Get("is_admin"); ok {
		if admin, ok := v.(bool); ok {
			actor.IsAdmin = admin
		}
	}
	return actor
}
