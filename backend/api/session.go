package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/api/conv"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
)

// SessionHandler serves session metadata and the closure audit.
type SessionHandler struct {
	tracker *tracker.Tracker
}

func NewSessionHandler(tr *tracker.Tracker) *SessionHandler {
	return &SessionHandler{tracker: tr}
}

func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}

	session, err := h.tracker.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertSession(session))
}

// closeSessionRequest lists explicit dispositions by record id. Anything the
// caller leaves out is force-closed with the engine's default disposition.
type closeSessionRequest struct {
	Complete []string `json:"complete"`
	Defer    []string `json:"defer"`
	Abandon  []string `json:"abandon"`
}

func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}

	var req closeSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	dispositions := tracker.Dispositions{}
	for _, group := range []struct {
		ids []string
		ev  task.Event
	}{
		{req.Complete, task.EventCompleted},
		{req.Defer, task.EventDeferred},
		{req.Abandon, task.EventAbandoned},
	} {
		for _, raw := range group.ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, shared.Wrap(shared.ErrorSourceUser, err, "invalid task id %q", raw))
				return
			}
			if _, dup := dispositions[id]; dup {
				badRequest(c, shared.Errorf(shared.ErrorSourceUser, "conflicting dispositions for %s", id))
				return
			}
			dispositions[id] = group.ev
		}
	}

	report, err := h.tracker.CloseSession(c.Request.Context(), sessionID, dispositions)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertClosureReport(report))
}
