// README: Reservation service: book, list, and promote a reservation into an assigned order.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, state State) ([]Reservation, error)
	MarkAssigned(ctx context.Context, id string, a Assignment) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, sess session.Session, cmd order.DispatchCommand) (*order.InProgress, error)
}

type Notifier interface {
	Notify(ctx context.Context, phone, message string)
}

type Service struct {
	repo        Repository
	orders      Dispatcher
	notifier    Notifier
	countryCode string
	loc         *time.Location
	now         types.Clock
	log         logger.ILogger
}

func NewService(repo Repository, orders Dispatcher, notifier Notifier, countryCode string, loc *time.Location, log logger.ILogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:        repo,
		orders:      orders,
		notifier:    notifier,
		countryCode: countryCode,
		loc:         loc,
		now:         time.Now,
		log:         log,
	}
}

func (s *Service) WithClock(c types.Clock) *Service {
	s.now = c
	return s
}

type CreateCommand struct {
	Phone       string
	ClientName  string
	Address     string
	Sector      string
	Coords      types.Coords
	ScheduledAt time.Time
	Motive      string
	Destination string
	Empresa     string
}

// Create books a reservation and sends the client a confirmation when the phone is a mobile.
func (s *Service) Create(ctx context.Context, sess session.Session, cmd CreateCommand) (*Reservation, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	switch {
	case strings.TrimSpace(cmd.Phone) == "":
		return nil, types.Required("telefono")
	case strings.TrimSpace(cmd.ClientName) == "":
		return nil, types.Required("cliente")
	case strings.TrimSpace(cmd.Address) == "":
		return nil, types.Required("direccion")
	case strings.TrimSpace(cmd.Motive) == "":
		return nil, types.Required("motivo")
	case cmd.ScheduledAt.IsZero():
		return nil, types.Required("fechaReserva")
	}
	phone, err := client.ParsePhone(cmd.Phone, s.countryCode)
	if err != nil {
		return nil, err
	}
	if err := cmd.Coords.Validate(); err != nil {
		return nil, &types.ValidationError{Field: "coordenadas", Reason: err.Error()}
	}
	now := s.now()
	if !cmd.ScheduledAt.After(now) {
		return nil, &types.ValidationError{Field: "fechaReserva", Reason: "must be in the future"}
	}

	r := &Reservation{
		ID:          string(types.NewID()),
		ClientPhone: phone.Digits,
		ClientName:  strings.TrimSpace(cmd.ClientName),
		Address:     strings.TrimSpace(cmd.Address),
		Sector:      strings.TrimSpace(cmd.Sector),
		Coords:      cmd.Coords.Normalize(),
		ScheduledAt: cmd.ScheduledAt,
		Motive:      strings.TrimSpace(cmd.Motive),
		Destination: strings.TrimSpace(cmd.Destination),
		Empresa:     strings.TrimSpace(cmd.Empresa),
		State:       StatePending,
		CreatedBy:   sess.Operator,
		CreatedAt:   now,
	}
	if r.Empresa == "" {
		r.Empresa = order.CashEmpresa
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	s.log.Info("reservation created",
		logger.String("reservation", r.ID), logger.String("operator", sess.Operator))

	if s.notifier != nil && phone.Format == client.FormatMobile {
		s.notifier.Notify(ctx, phone.Full, s.confirmation(r))
	}
	return r, nil
}

func (s *Service) confirmation(r *Reservation) string {
	at := r.ScheduledAt.In(s.loc)
	return fmt.Sprintf("Hola %s, su reserva de taxi para el %s a las %s en %s fue registrada.",
		r.ClientName, at.Format(types.DayLayout), at.Format("15:04"), r.Address)
}

func (s *Service) List(ctx context.Context, state State) ([]Reservation, error) {
	switch state {
	case "", StatePending, StateAssigned:
	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrBadRequest, state)
	}
	return s.repo.List(ctx, state)
}

func (s *Service) Get(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.Get(ctx, id)
}

// Promote turns a pending reservation into an in-progress order on the given unit.
// The reservation stays on record as asignada with the order id and unit.
func (s *Service) Promote(ctx context.Context, sess session.Session, id, unit string) (*Reservation, *order.InProgress, error) {
	if !sess.Valid() {
		return nil, nil, session.ErrNoSession
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.State == StateAssigned {
		return nil, nil, ErrAlreadyAssigned
	}

	o, err := s.orders.Dispatch(ctx, sess, order.DispatchCommand{
		Phone:         r.ClientPhone,
		ClientName:    r.ClientName,
		Address:       r.Address,
		Sector:        r.Sector,
		Coords:        r.Coords,
		Destination:   r.Destination,
		Empresa:       r.Empresa,
		Authorization: r.Authorization,
		Unit:          unit,
	})
	if err != nil {
		return nil, nil, err
	}

	a := Assignment{Unit: o.Unit, OrderID: o.ID, Authorization: o.Authorization, By: sess.Operator, At: s.now()}
	if err := s.repo.MarkAssigned(ctx, r.ID, a); err != nil {
		s.log.Error("order dispatched but reservation not marked",
			logger.String("reservation", r.ID), logger.String("order", o.ID), logger.Error(err))
		if errors.Is(err, ErrAlreadyAssigned) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("mark reservation %s: %w", r.ID, err)
	}
	r.State, r.Unit, r.OrderID, r.Authorization = StateAssigned, a.Unit, a.OrderID, a.Authorization
	r.AssignedBy, r.AssignedAt = a.By, &a.At
	s.log.Info("reservation promoted",
		logger.String("reservation", r.ID), logger.String("order", o.ID), logger.String("unit", o.Unit))
	return r, o, nil
}
