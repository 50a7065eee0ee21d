// README: Driver registry handlers: profile, status switch, photo and status history.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/session"
)

const maxPhotoBytes = 5 << 20

type DriverService interface {
	ByUnit(ctx context.Context, unit string) (*driver.Driver, error)
	Save(ctx context.Context, sess session.Session, cmd driver.SaveCommand) (*driver.Driver, error)
	SetStatus(ctx context.Context, sess session.Session, cmd driver.StatusCommand) (*driver.Driver, error)
	UploadPhoto(ctx context.Context, unit, contentType string, r io.Reader) (*driver.Driver, error)
	DeletePhoto(ctx context.Context, unit string) error
	History(ctx context.Context, unit string, limit int) ([]driver.AuditEntry, error)
}

type DriverHandler struct {
	drivers DriverService
}

func NewDriverHandler(svc DriverService) *DriverHandler {
	return &DriverHandler{drivers: svc}
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.ByUnit(c.Request.Context(), c.Param("unit"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d, "active": d.Active()})
}

type saveDriverReq struct {
	Name        string `json:"name"`
	Plate       string `json:"plate"`
	Color       string `json:"color"`
	Phone       string `json:"phone"`
	PhotoURL    string `json:"photoUrl"`
	Token       string `json:"token"`
	FCMToken    string `json:"fcmToken"`
	DeviceToken string `json:"deviceToken"`
	Active      *bool  `json:"active"`
}

func (h *DriverHandler) Save(c *gin.Context) {
	var req saveDriverReq
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.drivers.Save(c.Request.Context(), middleware.CurrentSession(c), driver.SaveCommand{
		Unit:        c.Param("unit"),
		Name:        req.Name,
		Plate:       req.Plate,
		Color:       req.Color,
		Phone:       req.Phone,
		PhotoURL:    req.PhotoURL,
		Token:       req.Token,
		FCMToken:    req.FCMToken,
		DeviceToken: req.DeviceToken,
		Active:      req.Active,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

type statusReq struct {
	Active *bool  `json:"active"`
	Reason string `json:"reason"`
}

func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req statusReq
	if !bindJSON(c, &req) {
		return
	}
	if req.Active == nil {
		writeError(c, http.StatusBadRequest, "missing active")
		return
	}
	d, err := h.drivers.SetStatus(c.Request.Context(), middleware.CurrentSession(c), driver.StatusCommand{
		Unit:   c.Param("unit"),
		Active: *req.Active,
		Reason: req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d, "active": d.Active()})
}

func (h *DriverHandler) UploadPhoto(c *gin.Context) {
	fh, err := c.FormFile("foto")
	if err != nil {
		writeError(c, http.StatusBadRequest, "missing foto")
		return
	}
	if fh.Size > maxPhotoBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "photo too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable foto")
		return
	}
	defer f.Close()

	d, err := h.drivers.UploadPhoto(c.Request.Context(), c.Param("unit"), fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DriverHandler) DeletePhoto(c *gin.Context) {
	if err := h.drivers.DeletePhoto(c.Request.Context(), c.Param("unit")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DriverHandler) History(c *gin.Context) {
	limit := cast.ToInt(c.DefaultQuery("limit", "50"))
	list, err := h.drivers.History(c.Request.Context(), c.Param("unit"), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"unit": c.Param("unit"), "entries": list})
}
