package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/workflow"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Analyzer runs one brand analysis (workflowservice.Engine)
type Analyzer interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Report, error)
}

// AlertService manages persisted alerts (alertservice.Service)
type AlertService interface {
	List(ctx context.Context, f alert.Filter) ([]*alert.Alert, error)
	Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error)
	Acknowledge(ctx context.Context, id uuid.UUID, assignee string) error
	Resolve(ctx context.Context, id uuid.UUID) error
}

type handlers struct {
	analyzer Analyzer
	alerts   AlertService
	log      *logger.Logger
}

// FieldError is one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

func (h *handlers) createAnalysis(c *gin.Context) {
	var req workflow.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	report, err := h.analyzer.Run(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *handlers) listAlerts(c *gin.Context) {
	if !h.alertsConfigured(c) {
		return
	}

	f := alert.Filter{Brand: c.Query("brand")}
	for _, s := range c.QueryArray("status") {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Statuses = append(f.Statuses, alert.Status(part))
			}
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  errors.ErrInvalidRequest.Error(),
				Fields: []FieldError{{Field: "limit", Message: "must be a positive integer"}},
			})
			return
		}
		f.Limit = limit
	}

	alerts, err := h.alerts.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
}

func (h *handlers) getAlert(c *gin.Context) {
	id, ok := h.alertID(c)
	if !ok {
		return
	}

	a, err := h.alerts.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type acknowledgeRequest struct {
	Assignee string `json:"assignee"`
}

func (h *handlers) acknowledgeAlert(c *gin.Context) {
	id, ok := h.alertID(c)
	if !ok {
		return
	}

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	if err := h.alerts.Acknowledge(c.Request.Context(), id, req.Assignee); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": alert.StatusAcknowledged})
}

func (h *handlers) resolveAlert(c *gin.Context) {
	id, ok := h.alertID(c)
	if !ok {
		return
	}

	if err := h.alerts.Resolve(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": alert.StatusResolved})
}

func (h *handlers) alertsConfigured(c *gin.Context) bool {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "alert store is not configured"})
		return false
	}
	return true
}

func (h *handlers) alertID(c *gin.Context) (uuid.UUID, bool) {
	if !h.alertsConfigured(c) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  errors.ErrInvalidRequest.Error(),
			Fields: []FieldError{{Field: "id", Message: "must be a UUID"}},
		})
		return uuid.Nil, false
	}
	return id, true
}

// fail maps error kinds onto HTTP statuses
func (h *handlers) fail(c *gin.Context, err error) {
	var fields errors.ValidationErrors
	switch {
	case errors.As(err, &fields):
		resp := ErrorResponse{Error: errors.ErrInvalidRequest.Error()}
		for _, f := range fields {
			resp.Fields = append(resp.Fields, FieldError{Field: f.Field, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, errors.ErrInvalidRequest), errors.Is(err, errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.log.Errorw("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errors.ErrInternal.Error()})
	}
}
