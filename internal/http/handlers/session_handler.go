// README: Operator session start and logout.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/session"
)

type SessionService interface {
	Start(ctx context.Context, uid string) (session.Session, error)
	End(ctx context.Context, uid string) error
}

type SessionHandler struct {
	sessions SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{sessions: svc}
}

func (h *SessionHandler) Start(c *gin.Context) {
	s, err := h.sessions.Start(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), middleware.CallerUID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
