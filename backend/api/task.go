package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/api/conv"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
)

// TaskHandler serves the task lifecycle resources.
type TaskHandler struct {
	tracker *tracker.Tracker
}

func NewTaskHandler(tr *tracker.Tracker) *TaskHandler {
	return &TaskHandler{tracker: tr}
}

type createTaskRequest struct {
	Domain      string  `json:"domain"`
	Description string  `json:"description"`
	Supersedes  *string `json:"supersedes,omitempty"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	domain, err := task.ParseDomain(req.Domain)
	if err != nil {
		badRequest(c, err)
		return
	}

	var opts tracker.CreateOptions
	if req.Supersedes != nil {
		supersedes, err := uuid.Parse(*req.Supersedes)
		if err != nil {
			badRequest(c, shared.Wrap(shared.ErrorSourceUser, err, "invalid supersedes id"))
			return
		}
		opts.Supersedes = &supersedes
	}

	record, err := h.tracker.CreateTask(c.Request.Context(), sessionID, domain, req.Description, opts)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv.ConvertRecord(record))
}

func (h *TaskHandler) Get(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.tracker.GetTask(c.Request.Context(), sessionID, taskID)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertRecord(record))
}

func (h *TaskHandler) List(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}

	filter := store.TaskFilter{SessionID: &sessionID}

	if raw := c.Query("domain"); raw != "" {
		domain, err := task.ParseDomain(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Domain = &domain
	}

	if raw := c.Query("state"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			state, err := task.ParseState(strings.TrimSpace(part))
			if err != nil {
				badRequest(c, err)
				return
			}
			filter.States = append(filter.States, state)
		}
	}

	records, err := h.tracker.ListTasks(c.Request.Context(), filter)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": conv.ConvertRecords(records)})
}

type refineTaskRequest struct {
	Description string `json:"description"`
}

func (h *TaskHandler) Refine(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req refineTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.tracker.RefineDescription(c.Request.Context(), sessionID, taskID, req.Description)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertRecord(record))
}

type applyEventRequest struct {
	Event string `json:"event"`
}

func (h *TaskHandler) ApplyEvent(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req applyEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ev, err := task.ParseEvent(req.Event)
	if err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.tracker.ApplyEvent(c.Request.Context(), sessionID, taskID, ev)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertRecord(record))
}

func (h *TaskHandler) ListTransitions(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// Scope check before touching the log.
	if _, err := h.tracker.GetTask(c.Request.Context(), sessionID, taskID); err != nil {
		apiError(c, err)
		return
	}

	transitions, err := h.tracker.Store().ListTransitions(c.Request.Context(), taskID)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transitions": conv.ConvertTransitions(transitions)})
}

func (h *TaskHandler) ListInterventions(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session")
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if _, err := h.tracker.GetTask(c.Request.Context(), sessionID, taskID); err != nil {
		apiError(c, err)
		return
	}

	interventions, err := h.tracker.Store().ListInterventions(c.Request.Context(), store.InterventionFilter{TaskID: &taskID})
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interventions": conv.ConvertInterventions(interventions)})
}

// pathUUID parses a uuid path parameter, answering 400 itself on bad input.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, shared.Wrap(shared.ErrorSourceUser, err, "invalid %s id", name))
		return uuid.Nil, false
	}
	return id, true
}
