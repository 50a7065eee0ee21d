// README: Daily operator counters and spreadsheet exports.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/modules/report"
	"centraltaxi/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DailyReports interface {
	Get(ctx context.Context, operator, day string) (*report.Daily, error)
}

type SpreadsheetExporter interface {
	Archive(ctx context.Context, day string, w io.Writer) error
	Vouchers(ctx context.Context, from, to time.Time, w io.Writer) error
}

type VoucherNumbers interface {
	NextNumber(ctx context.Context) int64
}

type ReportHandler struct {
	reports  DailyReports
	exporter SpreadsheetExporter
	vouchers VoucherNumbers
	loc      *time.Location
	now      types.Clock
}

func NewReportHandler(reports DailyReports, exporter SpreadsheetExporter, vouchers VoucherNumbers, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, exporter: exporter, vouchers: vouchers, loc: loc, now: time.Now}
}

// Daily returns the caller's counters; date defaults to today.
func (h *ReportHandler) Daily(c *gin.Context) {
	day := c.DefaultQuery("date", types.Day(h.now(), h.loc))
	d, err := h.reports.Get(c.Request.Context(), middleware.CurrentSession(c).Operator, day)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *ReportHandler) ExportArchive(c *gin.Context) {
	day := c.Param("date")
	var buf bytes.Buffer
	if err := h.exporter.Archive(c.Request.Context(), day, &buf); err != nil {
		writeServiceError(c, err)
		return
	}
	sendSpreadsheet(c, fmt.Sprintf("archivo_%s.xlsx", day), &buf)
}

func (h *ReportHandler) NextVoucherNumber(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"number": h.vouchers.NextNumber(c.Request.Context())})
}

// ExportVouchers covers from..to inclusive; both are DD-MM-YYYY.
func (h *ReportHandler) ExportVouchers(c *gin.Context) {
	fromRaw := c.Query("from")
	toRaw := c.DefaultQuery("to", fromRaw)
	from, err := types.ParseDay(fromRaw, h.loc)
	if err != nil {
		writeServiceError(c, &types.ValidationError{Field: "from", Reason: err.Error()})
		return
	}
	to, err := types.ParseDay(toRaw, h.loc)
	if err != nil {
		writeServiceError(c, &types.ValidationError{Field: "to", Reason: err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := h.exporter.Vouchers(c.Request.Context(), from, to, &buf); err != nil {
		writeServiceError(c, err)
		return
	}
	sendSpreadsheet(c, fmt.Sprintf("vouchers_%s_%s.xlsx", fromRaw, toRaw), &buf)
}

func sendSpreadsheet(c *gin.Context, name string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
