// README: Operator session passed explicitly from the HTTP layer into every service call.
package session

import (
	"errors"
	"time"
)

var ErrNoSession = errors.New("no operator session")

type Session struct {
	UID       string    `json:"uid"`
	Operator  string    `json:"operator"`
	Station   string    `json:"station"`
	StartedAt time.Time `json:"startedAt"`
}

func (s Session) Valid() bool {
	return s.UID != "" && s.Operator != ""
}
