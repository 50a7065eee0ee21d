// README: Reservations booked ahead of time and later promoted into assigned orders.
package reservation

import (
	"errors"
	"time"

	"centraltaxi/internal/types"
)

type State string

const (
	StatePending  State = "pendiente"
	StateAssigned State = "asignada"
)

var (
	ErrNotFound        = errors.New("reservation not found")
	ErrAlreadyAssigned = errors.New("reservation already assigned")
	ErrBadRequest      = errors.New("bad request")
)

type Reservation struct {
	ID            string       `firestore:"-" json:"id"`
	ClientPhone   string       `firestore:"telefono" json:"clientPhone"`
	ClientName    string       `firestore:"cliente" json:"clientName"`
	Address       string       `firestore:"direccion" json:"address"`
	Sector        string       `firestore:"sector" json:"sector"`
	Coords        types.Coords `firestore:"coordenadas" json:"coords"`
	ScheduledAt   time.Time    `firestore:"fechaReserva" json:"scheduledAt"`
	Motive        string       `firestore:"motivo" json:"motive"`
	Destination   string       `firestore:"destino" json:"destination"`
	Empresa       string       `firestore:"empresa" json:"empresa"`
	Authorization *int64       `firestore:"autorizacion" json:"authorization"`
	State         State        `firestore:"estado" json:"state"`
	Unit          string       `firestore:"unidad,omitempty" json:"unit,omitempty"`
	OrderID       string       `firestore:"pedidoId,omitempty" json:"orderId,omitempty"`
	CreatedBy     string       `firestore:"operador" json:"createdBy"`
	CreatedAt     time.Time    `firestore:"fechaCreacion" json:"createdAt"`
	AssignedBy    string       `firestore:"asignadoPor,omitempty" json:"assignedBy,omitempty"`
	AssignedAt    *time.Time   `firestore:"fechaAsignacion,omitempty" json:"assignedAt,omitempty"`
}

// Assignment is what a promotion stamps on the reservation it consumed.
type Assignment struct {
	Unit          string
	OrderID       string
	Authorization *int64
	By            string
	At            time.Time
}
