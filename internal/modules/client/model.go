// README: Client records and their saved-address history, as stored in the three client collections.
package client

import (
	"errors"
	"time"

	"centraltaxi/internal/types"
)

// Collection names double as the client type reported to the console.
type Collection string

const (
	CollectionFixed   Collection = "clientesFijos"
	CollectionMobile  Collection = "clientesMoviles"
	CollectionGeneral Collection = "clientes"
)

type Mode string

const (
	ModeManual Mode = "manual"
	ModeApp    Mode = "aplicacion"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrBadRequest   = errors.New("bad request")
)

type Client struct {
	DocID       string     `firestore:"-" json:"id"`
	Collection  Collection `firestore:"-" json:"collection"`
	Phone       string     `firestore:"telefono" json:"phone"`
	ShortID     int64      `firestore:"id_cliente,omitempty" json:"shortId,omitempty"`
	Name        string     `firestore:"nombre" json:"name"`
	Sector      string     `firestore:"sector" json:"sector"`
	CountryCode string     `firestore:"prefijo,omitempty" json:"countryCode,omitempty"`
	Addresses   []Address  `firestore:"direcciones" json:"addresses"`
	CreatedAt   time.Time  `firestore:"fechaRegistro" json:"createdAt"`
}

type Address struct {
	Text         string       `firestore:"direccion" json:"address"`
	Coords       types.Coords `firestore:"coordenadas" json:"coords"`
	RegisteredAt time.Time    `firestore:"fechaRegistro" json:"registeredAt"`
	UpdatedAt    *time.Time   `firestore:"fechaActualizacion,omitempty" json:"updatedAt,omitempty"`
	Active       bool         `firestore:"activa" json:"active"`
	Mode         Mode         `firestore:"modo" json:"mode"`
}

// ActiveAddress returns the first entry flagged active, else the first entry.
func (c *Client) ActiveAddress() (Address, bool) {
	if c == nil || len(c.Addresses) == 0 {
		return Address{}, false
	}
	for _, a := range c.Addresses {
		if a.Active {
			return a, true
		}
	}
	return c.Addresses[0], true
}
