// README: Order handlers for the dispatch console: register, assign, close and browse the archive.
package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

type OrderService interface {
	Register(ctx context.Context, sess session.Session, cmd order.RegisterCommand) (*order.Pending, error)
	Assign(ctx context.Context, sess session.Session, cmd order.AssignCommand) (*order.InProgress, error)
	CancelPending(ctx context.Context, sess session.Session, cmd order.CancelCommand) (*order.Terminal, error)
	Cancel(ctx context.Context, sess session.Session, cmd order.CancelCommand) (*order.Terminal, error)
	Finalize(ctx context.Context, sess session.Session, cmd order.FinalizeCommand) (*order.Terminal, error)
	FinalizeVoucher(ctx context.Context, sess session.Session, cmd order.VoucherCommand) (*order.Terminal, *voucher.Voucher, error)
	Get(ctx context.Context, id string) (order.Order, error)
	ListPending(ctx context.Context) ([]order.Pending, error)
	ListInProgress(ctx context.Context) ([]order.InProgress, error)
	ListArchived(ctx context.Context, day string) ([]order.Terminal, error)
}

type OrderHandler struct {
	orders OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{orders: svc}
}

type registerReq struct {
	Phone       string `json:"phone"`
	ClientName  string `json:"clientName"`
	Address     string `json:"address"`
	Sector      string `json:"sector"`
	Coords      string `json:"coords"`
	Station     string `json:"station"`
	Destination string `json:"destination"`
	Empresa     string `json:"empresa"`
	FromApp     bool   `json:"fromApp"`
}

func (h *OrderHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}
	mode := client.ModeManual
	if req.FromApp {
		mode = client.ModeApp
	}
	p, err := h.orders.Register(c.Request.Context(), middleware.CurrentSession(c), order.RegisterCommand{
		Phone:       req.Phone,
		ClientName:  req.ClientName,
		Address:     req.Address,
		Sector:      req.Sector,
		Coords:      types.Coords(req.Coords),
		Station:     req.Station,
		Destination: req.Destination,
		Empresa:     req.Empresa,
		Mode:        mode,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

func (h *OrderHandler) ListPending(c *gin.Context) {
	list, err := h.orders.ListPending(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": list})
}

func (h *OrderHandler) ListInProgress(c *gin.Context) {
	list, err := h.orders.ListInProgress(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": list})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type assignReq struct {
	Unit string `json:"unit"`
}

func (h *OrderHandler) Assign(c *gin.Context) {
	var req assignReq
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Unit) == "" {
		writeServiceError(c, types.Required("unidad"))
		return
	}
	o, err := h.orders.Assign(c.Request.Context(), middleware.CurrentSession(c), order.AssignCommand{
		OrderID: c.Param("id"),
		Unit:    req.Unit,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type cancelReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Cancel routes by the requested outcome: unassigned outcomes close a pending order,
// client or unit cancellations close an in-progress one.
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if !bindJSON(c, &req) {
		return
	}
	cmd := order.CancelCommand{OrderID: c.Param("id"), Status: order.Status(req.Status), Reason: req.Reason}
	var (
		t   *order.Terminal
		err error
	)
	switch cmd.Status {
	case order.StatusCancelledUnassigned, order.StatusNoUnitAvailable:
		t, err = h.orders.CancelPending(c.Request.Context(), middleware.CurrentSession(c), cmd)
	default:
		t, err = h.orders.Cancel(c.Request.Context(), middleware.CurrentSession(c), cmd)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

type finalizeReq struct {
	Note string `json:"note"`
}

func (h *OrderHandler) Finalize(c *gin.Context) {
	var req finalizeReq
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	t, err := h.orders.Finalize(c.Request.Context(), middleware.CurrentSession(c), order.FinalizeCommand{
		OrderID: c.Param("id"),
		Note:    req.Note,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

type voucherReq struct {
	ClientName     string  `json:"clientName"`
	Destination    string  `json:"destination"`
	Empresa        string  `json:"empresa"`
	Kind           string  `json:"kind"`
	PhysicalNumber string  `json:"physicalNumber"`
	Amount         float64 `json:"amount"`
}

func (h *OrderHandler) Voucher(c *gin.Context) {
	var req voucherReq
	if !bindJSON(c, &req) {
		return
	}
	t, v, err := h.orders.FinalizeVoucher(c.Request.Context(), middleware.CurrentSession(c), order.VoucherCommand{
		OrderID:        c.Param("id"),
		ClientName:     req.ClientName,
		Destination:    req.Destination,
		Empresa:        req.Empresa,
		Kind:           voucher.Kind(req.Kind),
		PhysicalNumber: req.PhysicalNumber,
		Amount:         types.Cents(int64(math.Round(req.Amount * 100))),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order": t, "voucher": v})
}

func (h *OrderHandler) ListArchived(c *gin.Context) {
	list, err := h.orders.ListArchived(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"day": c.Param("date"), "orders": list})
}
