// README: Order shapes per lifecycle state and the transition table between them.
package order

import (
	"time"

	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/types"
)

type Status string

const (
	StatusPending    Status = "disponible"
	StatusInProgress Status = "en_curso"

	StatusFinalizedPlain      Status = "finalizado"
	StatusFinalizedVoucher    Status = "voucher"
	StatusCancelledByClient   Status = "cancelado_cliente"
	StatusCancelledByUnit     Status = "cancelado_unidad"
	StatusCancelledUnassigned Status = "cancelado"
	StatusNoUnitAvailable     Status = "sin_unidad"
)

// CashEmpresa marks trips paid in cash; they never need an authorization number.
const CashEmpresa = "Efectivo"

// AllowedTransitions represents the order lifecycle as code. Terminal statuses have no entry.
var AllowedTransitions = map[Status][]Status{
	StatusPending: {
		StatusInProgress,
		StatusCancelledUnassigned,
		StatusNoUnitAvailable,
	},
	StatusInProgress: {
		StatusCancelledByClient,
		StatusCancelledByUnit,
		StatusFinalizedPlain,
		StatusFinalizedVoucher,
	},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	_, ok := archiveColors[s]
	return ok
}

// archiveColors is the row color the archive view uses for each terminal status.
var archiveColors = map[Status]string{
	StatusFinalizedPlain:      "#2e7d32",
	StatusFinalizedVoucher:    "#1565c0",
	StatusCancelledByClient:   "#ef6c00",
	StatusCancelledByUnit:     "#c62828",
	StatusCancelledUnassigned: "#757575",
	StatusNoUnitAvailable:     "#6a1b9a",
}

// Details are the fields every order shape carries from registration onwards.
type Details struct {
	ClientPhone   string       `firestore:"telefono" json:"clientPhone"`
	FullPhone     string       `firestore:"telefonoCompleto" json:"fullPhone"`
	ClientName    string       `firestore:"cliente" json:"clientName"`
	ClientType    string       `firestore:"tipoCliente,omitempty" json:"clientType,omitempty"`
	Address       string       `firestore:"direccion" json:"address"`
	Sector        string       `firestore:"sector" json:"sector"`
	Coords        types.Coords `firestore:"coordenadas" json:"coords"`
	Station       string       `firestore:"base" json:"station"`
	Destination   string       `firestore:"destino" json:"destination"`
	Empresa       string       `firestore:"empresa" json:"empresa"`
	Authorization *int64       `firestore:"autorizacion" json:"authorization"`
	Operator      string       `firestore:"operador" json:"operator"`
	CreatedAt     time.Time    `firestore:"fechaCreacion" json:"createdAt"`
}

func (d Details) cash() bool {
	return d.Empresa == "" || d.Empresa == CashEmpresa
}

// Order is one of *Pending, *InProgress or *Terminal.
type Order interface {
	OrderID() string
	OrderStatus() Status
	details() *Details
}

type Pending struct {
	ID     string `firestore:"-" json:"id"`
	Status Status `firestore:"estado" json:"status"`
	Details
}

type InProgress struct {
	ID     string `firestore:"-" json:"id"`
	Status Status `firestore:"estado" json:"status"`
	Details
	driver.Snapshot
	AssignedAt time.Time `firestore:"fechaAsignacion" json:"assignedAt"`
	AssignedBy string    `firestore:"asignadoPor" json:"assignedBy"`
}

// Terminal is the archived copy. The driver snapshot is empty when the order never left Pending.
type Terminal struct {
	ID     string `firestore:"-" json:"id"`
	Status Status `firestore:"estado" json:"status"`
	Details
	driver.Snapshot
	AssignedAt   *time.Time `firestore:"fechaAsignacion" json:"assignedAt,omitempty"`
	Reason       string     `firestore:"motivo" json:"reason"`
	ClosedBy     string     `firestore:"cerradoPor" json:"closedBy"`
	ClosedAt     time.Time  `firestore:"fechaCierre" json:"closedAt"`
	DisplayColor string     `firestore:"colorArchivo" json:"displayColor"`
	Day          string     `firestore:"fechaArchivo" json:"day"`
}

func (p *Pending) OrderID() string        { return p.ID }
func (p *Pending) OrderStatus() Status    { return StatusPending }
func (p *Pending) details() *Details      { return &p.Details }
func (o *InProgress) OrderID() string     { return o.ID }
func (o *InProgress) OrderStatus() Status { return StatusInProgress }
func (o *InProgress) details() *Details   { return &o.Details }
func (t *Terminal) OrderID() string       { return t.ID }
func (t *Terminal) OrderStatus() Status   { return t.Status }
func (t *Terminal) details() *Details     { return &t.Details }

// Closure is the transition metadata stamped on an archived order.
type Closure struct {
	Status   Status
	Reason   string
	ClosedBy string
	ClosedAt time.Time
	Day      string
}

func (p *Pending) assign(snap driver.Snapshot, by string, at time.Time) *InProgress {
	return &InProgress{
		ID:         p.ID,
		Status:     StatusInProgress,
		Details:    p.Details,
		Snapshot:   snap,
		AssignedAt: at,
		AssignedBy: by,
	}
}

func (p *Pending) close(c Closure) *Terminal {
	return newTerminal(p.ID, p.Details, driver.Snapshot{}, nil, c)
}

func (o *InProgress) close(c Closure) *Terminal {
	at := o.AssignedAt
	return newTerminal(o.ID, o.Details, o.Snapshot, &at, c)
}

func newTerminal(id string, d Details, snap driver.Snapshot, assignedAt *time.Time, c Closure) *Terminal {
	return &Terminal{
		ID:           id,
		Status:       c.Status,
		Details:      d,
		Snapshot:     snap,
		AssignedAt:   assignedAt,
		Reason:       c.Reason,
		ClosedBy:     c.ClosedBy,
		ClosedAt:     c.ClosedAt,
		DisplayColor: archiveColors[c.Status],
		Day:          c.Day,
	}
}
