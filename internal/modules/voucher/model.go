// README: Corporate voucher records; one per order finalized against an empresa account.
package voucher

import (
	"errors"
	"strings"
	"time"

	"centraltaxi/internal/types"
)

type Kind string

const (
	KindElectronic Kind = "electronico"
	KindPhysical   Kind = "fisico"
)

var ErrNotFound = errors.New("voucher not found")

type Voucher struct {
	OrderID        string      `firestore:"orderId" json:"orderId"`
	Authorization  int64       `firestore:"numeroAutorizacion" json:"authorization"`
	Empresa        string      `firestore:"empresa" json:"empresa"`
	ClientName     string      `firestore:"cliente" json:"clientName"`
	ClientPhone    string      `firestore:"telefono" json:"clientPhone"`
	Origin         string      `firestore:"origen" json:"origin"`
	Destination    string      `firestore:"destino" json:"destination"`
	Unit           string      `firestore:"unidad" json:"unit"`
	Kind           Kind        `firestore:"tipo" json:"kind"`
	PhysicalNumber string      `firestore:"numeroFisico,omitempty" json:"physicalNumber,omitempty"`
	Amount         types.Money `firestore:"valor" json:"amount"`
	Operator       string      `firestore:"operador" json:"operator"`
	CreatedAt      time.Time   `firestore:"fecha" json:"createdAt"`
}

// Validate checks the fields an operator must fill before a trip is billed to an empresa.
func (v *Voucher) Validate() error {
	switch {
	case strings.TrimSpace(v.ClientName) == "":
		return types.Required("cliente")
	case strings.TrimSpace(v.Destination) == "":
		return types.Required("destino")
	case strings.TrimSpace(v.Empresa) == "":
		return types.Required("empresa")
	}
	switch v.Kind {
	case KindElectronic:
	case KindPhysical:
		if strings.TrimSpace(v.PhysicalNumber) == "" {
			return types.Required("numeroFisico")
		}
	default:
		return &types.ValidationError{Field: "tipo", Reason: "must be electronico or fisico"}
	}
	return nil
}
