// README: Reservation handlers: book, list and promote to an in-progress order.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/modules/reservation"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

type ReservationService interface {
	Create(ctx context.Context, sess session.Session, cmd reservation.CreateCommand) (*reservation.Reservation, error)
	List(ctx context.Context, state reservation.State) ([]reservation.Reservation, error)
	Get(ctx context.Context, id string) (*reservation.Reservation, error)
	Promote(ctx context.Context, sess session.Session, id, unit string) (*reservation.Reservation, *order.InProgress, error)
}

type ReservationHandler struct {
	reservations ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: svc}
}

type createReservationReq struct {
	Phone       string    `json:"phone"`
	ClientName  string    `json:"clientName"`
	Address     string    `json:"address"`
	Sector      string    `json:"sector"`
	Coords      string    `json:"coords"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Motive      string    `json:"motive"`
	Destination string    `json:"destination"`
	Empresa     string    `json:"empresa"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var req createReservationReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reservations.Create(c.Request.Context(), middleware.CurrentSession(c), reservation.CreateCommand{
		Phone:       req.Phone,
		ClientName:  req.ClientName,
		Address:     req.Address,
		Sector:      req.Sector,
		Coords:      types.Coords(req.Coords),
		ScheduledAt: req.ScheduledAt,
		Motive:      req.Motive,
		Destination: req.Destination,
		Empresa:     req.Empresa,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReservationHandler) List(c *gin.Context) {
	list, err := h.reservations.List(c.Request.Context(), reservation.State(c.Query("state")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"reservations": list})
}

func (h *ReservationHandler) Get(c *gin.Context) {
	r, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) Promote(c *gin.Context) {
	var req assignReq
	if !bindJSON(c, &req) {
		return
	}
	r, o, err := h.reservations.Promote(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), req.Unit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"reservation": r, "order": o})
}
