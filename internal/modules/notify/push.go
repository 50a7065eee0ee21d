// README: FCM push to the assigned driver. Short or missing tokens degrade to "no push".
package notify

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"centraltaxi/internal/logger"
)

const DefaultMinTokenLen = 100

var ErrInvalidToken = errors.New("invalid push token")

// Sender is satisfied by *messaging.Client.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Assignment is the payload a driver's app receives when an order is assigned to its unit.
type Assignment struct {
	OrderID    string
	ClientName string
	Phone      string
	Address    string
	Sector     string
	Coords     string
}

type Push struct {
	sender Sender
	minLen int
	log    logger.ILogger
}

func NewPush(sender Sender, minLen int, log logger.ILogger) *Push {
	if minLen <= 0 {
		minLen = DefaultMinTokenLen
	}
	return &Push{sender: sender, minLen: minLen, log: log}
}

func ValidToken(token string, minLen int) bool {
	return len(token) >= minLen
}

func (p *Push) NotifyAssignment(ctx context.Context, token string, a Assignment) error {
	if !ValidToken(token, p.minLen) {
		return ErrInvalidToken
	}
	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":      "pedido_asignado",
			"pedidoId":  a.OrderID,
			"cliente":   a.ClientName,
			"telefono":  a.Phone,
			"direccion": a.Address,
			"sector":    a.Sector,
			"coords":    a.Coords,
		},
		Notification: &messaging.Notification{
			Title: "Nueva carrera asignada",
			Body:  fmt.Sprintf("%s - %s", a.ClientName, a.Address),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	id, err := p.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM for order %s: %w", a.OrderID, err)
	}
	p.log.Debug("push sent", logger.String("order", a.OrderID), logger.String("message_id", id))
	return nil
}
