// README: Per-operator daily activity counters.
package report

import (
	"errors"
	"time"
)

var ErrBadRequest = errors.New("bad request")

// Daily is one reportesDiarios document, keyed {operator}_{DD-MM-YYYY}.
type Daily struct {
	Operator   string    `firestore:"operador" json:"operator"`
	Day        string    `firestore:"fecha" json:"day"`
	Registered int64     `firestore:"registrados" json:"registered"`
	Assigned   int64     `firestore:"asignados" json:"assigned"`
	Finalized  int64     `firestore:"finalizados" json:"finalized"`
	Vouchers   int64     `firestore:"vouchers" json:"vouchers"`
	Cancelled  int64     `firestore:"cancelados" json:"cancelled"`
	NoUnit     int64     `firestore:"sinUnidad" json:"noUnit"`
	UpdatedAt  time.Time `firestore:"actualizado" json:"updatedAt"`
}

func DocID(operator, day string) string {
	return operator + "_" + day
}
