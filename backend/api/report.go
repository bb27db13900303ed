package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tractionhq/traction/backend/api/conv"
	"github.com/tractionhq/traction/backend/report"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
)

// ReportHandler serves daily summaries and the streak counter.
type ReportHandler struct {
	reports *report.Aggregator
	clock   tracker.Clock
}

func NewReportHandler(reports *report.Aggregator, clock tracker.Clock) *ReportHandler {
	return &ReportHandler{reports: reports, clock: clock}
}

func (h *ReportHandler) Daily(c *gin.Context) {
	date, ok := h.queryDate(c)
	if !ok {
		return
	}

	summary, err := h.reports.Daily(c.Request.Context(), date)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv.ConvertDailySummary(summary))
}

func (h *ReportHandler) Streak(c *gin.Context) {
	date, ok := h.queryDate(c)
	if !ok {
		return
	}

	streak, err := h.reports.Streak(c.Request.Context(), date)
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   date.In(h.reports.Location()).Format(conv.DateFormat),
		"streak": streak,
	})
}

// queryDate reads the optional ?date=YYYY-MM-DD parameter in the reporting
// zone, defaulting to the current day.
func (h *ReportHandler) queryDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.clock.Now(), true
	}

	date, err := time.ParseInLocation(conv.DateFormat, raw, h.reports.Location())
	if err != nil {
		badRequest(c, shared.Wrap(shared.ErrorSourceUser, err, "invalid date, want YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}
