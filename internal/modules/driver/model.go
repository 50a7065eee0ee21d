// README: Driver registry records, the snapshot embedded into assigned orders, and the active-flag rules.
package driver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnitNotFound     = errors.New("unit not found")
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidPhotoURL  = errors.New("photo url not accepted")
	ErrPhotoNotUploaded = errors.New("photo is still a local preview")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// InactiveUnitError blocks an assignment to a unit whose estatus is off.
type InactiveUnitError struct {
	Unit string
}

func (e *InactiveUnitError) Error() string {
	return fmt.Sprintf("unit %s is inactive", e.Unit)
}

type Driver struct {
	ID          string      `firestore:"-" json:"id"`
	Unit        string      `firestore:"-" json:"unit"`
	UnitRaw     interface{} `firestore:"unidad" json:"-"`
	Name        string      `firestore:"nombre" json:"name"`
	Plate       string      `firestore:"placa" json:"plate"`
	Color       string      `firestore:"color" json:"color"`
	Phone       string      `firestore:"telefono" json:"phone"`
	PhotoURL    string      `firestore:"foto" json:"photoUrl"`
	PhotoPath   string      `firestore:"fotoRuta,omitempty" json:"-"`
	Token       string      `firestore:"token,omitempty" json:"-"`
	FCMToken    string      `firestore:"fcmToken,omitempty" json:"-"`
	DeviceToken string      `firestore:"deviceToken,omitempty" json:"-"`
	Estatus     interface{} `firestore:"estatus" json:"estatus"`
	UpdatedAt   time.Time   `firestore:"fechaActualizacion" json:"updatedAt"`
}

// Active interprets estatus, which legacy records store as a bool or as a string.
func (d *Driver) Active() bool {
	switch v := d.Estatus.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "inactivo", "no":
			return false
		}
		return true
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// PushToken returns the first of token, fcmToken, deviceToken that is long enough to be real.
func (d *Driver) PushToken(minLen int) string {
	for _, t := range []string{d.Token, d.FCMToken, d.DeviceToken} {
		if len(t) >= minLen {
			return t
		}
	}
	return ""
}

// Snapshot is the copy of the driver that travels with an assigned order.
type Snapshot struct {
	DriverID  string `firestore:"conductorId" json:"driverId"`
	Unit      string `firestore:"unidad" json:"unit"`
	Name      string `firestore:"conductor" json:"name"`
	Plate     string `firestore:"placa" json:"plate"`
	Color     string `firestore:"colorVehiculo" json:"color"`
	Phone     string `firestore:"telefonoConductor" json:"phone"`
	PhotoURL  string `firestore:"fotoConductor" json:"photoUrl"`
	PushToken string `firestore:"tokenConductor" json:"-"`
}

func (d *Driver) Snapshot(minTokenLen int) Snapshot {
	return Snapshot{
		DriverID:  d.ID,
		Unit:      d.Unit,
		Name:      d.Name,
		Plate:     d.Plate,
		Color:     d.Color,
		Phone:     d.Phone,
		PhotoURL:  d.PhotoURL,
		PushToken: d.PushToken(minTokenLen),
	}
}

// AuditEntry is one row of the driver status-change log.
type AuditEntry struct {
	ID        int64
	DriverID  string
	Unit      string
	Active    bool
	Previous  bool
	Reason    string
	Operator  string
	CreatedAt time.Time
}
