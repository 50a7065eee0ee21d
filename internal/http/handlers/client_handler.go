// README: Phone lookup that pre-populates the registration form.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/modules/client"
)

type ClientResolver interface {
	Resolve(ctx context.Context, raw string) (client.Resolution, error)
}

type ClientHandler struct {
	clients ClientResolver
}

func NewClientHandler(svc ClientResolver) *ClientHandler {
	return &ClientHandler{clients: svc}
}

type resolveResp struct {
	Found     bool               `json:"found"`
	Type      client.Collection  `json:"type,omitempty"`
	MatchedBy client.MatchKind   `json:"matchedBy,omitempty"`
	Format    client.PhoneFormat `json:"format"`
	Phone     string             `json:"phone"`
	FullPhone string             `json:"fullPhone,omitempty"`
	Client    *client.Client     `json:"client,omitempty"`
	Address   *client.Address    `json:"address,omitempty"`
}

func (h *ClientHandler) Resolve(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		writeError(c, http.StatusBadRequest, "missing phone")
		return
	}
	res, err := h.clients.Resolve(c.Request.Context(), phone)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resolveResp{
		Found:     res.Found,
		Type:      res.Type,
		MatchedBy: res.MatchedBy,
		Format:    res.Phone.Format,
		Phone:     res.DisplayPhone,
		FullPhone: res.Phone.Full,
		Client:    res.Client,
		Address:   res.Address,
	})
}
