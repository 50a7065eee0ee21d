// README: Order service implements the dispatch lifecycle: register, assign, cancel, finalize.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/modules/notify"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

var (
	ErrInvalidState    = errors.New("invalid state transition")
	ErrNotFound        = errors.New("order not found")
	ErrBadRequest      = errors.New("bad request")
	ErrDuplicateSubmit = errors.New("registration already in flight")
)

type Store interface {
	CreatePending(ctx context.Context, p *Pending) error
	GetPending(ctx context.Context, id string) (*Pending, error)
	GetInProgress(ctx context.Context, id string) (*InProgress, error)
	GetArchived(ctx context.Context, day, id string) (*Terminal, error)
	ListPending(ctx context.Context) ([]Pending, error)
	ListInProgress(ctx context.Context) ([]InProgress, error)
	ListArchived(ctx context.Context, day string) ([]Terminal, error)
	Promote(ctx context.Context, o *InProgress) error
	CreateInProgress(ctx context.Context, o *InProgress) error
	Archive(ctx context.Context, from Status, t *Terminal) error
}

type Clients interface {
	Resolve(ctx context.Context, raw string) (client.Resolution, error)
	Create(ctx context.Context, p client.Phone, name, sector string) (*client.Client, error)
	MergeAddress(ctx context.Context, c *client.Client, text string, coords types.Coords, mode client.Mode) (bool, error)
}

type Drivers interface {
	RequireActive(ctx context.Context, unit string) (*driver.Driver, error)
	MinTokenLen() int
}

type Authorizations interface {
	Next(ctx context.Context) int64
}

type Vouchers interface {
	ForOrder(ctx context.Context, orderID string) (*voucher.Voucher, error)
	Issue(ctx context.Context, v voucher.Voucher) (*voucher.Voucher, error)
}

type Pusher interface {
	NotifyAssignment(ctx context.Context, token string, a notify.Assignment) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Coords, error)
}

// Guard serializes registrations of one operator. release is never nil when ok is true.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Tally counts operator activity per day.
type Tally interface {
	Add(ctx context.Context, operator string, at time.Time, field string)
}

const (
	TallyRegistered = "registrados"
	TallyAssigned   = "asignados"
	TallyFinalized  = "finalizados"
	TallyVouchers   = "vouchers"
	TallyCancelled  = "cancelados"
	TallyNoUnit     = "sinUnidad"
)

// Deps are the collaborators of the order service. Geocoder, Guard, Push and Tally are optional.
type Deps struct {
	Clients        Clients
	Drivers        Drivers
	Authorizations Authorizations
	Vouchers       Vouchers
	Push           Pusher
	Geocoder       Geocoder
	Guard          Guard
	Tally          Tally
}

type Service struct {
	store    Store
	deps     Deps
	loc      *time.Location
	guardTTL time.Duration
	now      types.Clock
	log      logger.ILogger
}

func NewService(store Store, deps Deps, loc *time.Location, guardTTL time.Duration, log logger.ILogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if guardTTL <= 0 {
		guardTTL = 15 * time.Second
	}
	return &Service{store: store, deps: deps, loc: loc, guardTTL: guardTTL, now: time.Now, log: log}
}

func (s *Service) WithClock(c types.Clock) *Service {
	s.now = c
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

type RegisterCommand struct {
	Phone       string
	ClientName  string
	Address     string
	Sector      string
	Coords      types.Coords
	Station     string
	Destination string
	Empresa     string
	Mode        client.Mode
}

// Register creates a Pending order for a phoned-in request. Unknown clients are created,
// and the address is folded into the client's history once the order is stored.
func (s *Service) Register(ctx context.Context, sess session.Session, cmd RegisterCommand) (*Pending, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		return nil, types.Required("telefono")
	}
	if err := cmd.Coords.Validate(); err != nil {
		return nil, &types.ValidationError{Field: "coordenadas", Reason: err.Error()}
	}

	release := s.acquire(ctx, "registro:"+sess.UID)
	if release == nil {
		return nil, ErrDuplicateSubmit
	}
	defer release()

	res, err := s.deps.Clients.Resolve(ctx, cmd.Phone)
	if err != nil {
		return nil, err
	}

	d := Details{
		ClientPhone: res.DisplayPhone,
		FullPhone:   res.Phone.Full,
		ClientName:  strings.TrimSpace(cmd.ClientName),
		Address:     strings.TrimSpace(cmd.Address),
		Sector:      strings.TrimSpace(cmd.Sector),
		Coords:      cmd.Coords.Normalize(),
		Station:     firstNonEmpty(cmd.Station, sess.Station),
		Destination: strings.TrimSpace(cmd.Destination),
		Empresa:     firstNonEmpty(cmd.Empresa, CashEmpresa),
		Operator:    sess.Operator,
		CreatedAt:   s.now(),
	}
	if res.Found {
		d.ClientType = string(res.Type)
		d.ClientName = firstNonEmpty(d.ClientName, res.Client.Name)
		d.Sector = firstNonEmpty(d.Sector, res.Client.Sector)
		if d.Address == "" && res.Address != nil {
			d.Address, d.Coords = res.Address.Text, res.Address.Coords
		}
	}
	if d.Address == "" {
		return nil, types.Required("direccion")
	}
	if d.Coords.IsEmpty() {
		d.Coords = s.geocode(ctx, d.Address)
	}

	p := &Pending{ID: string(types.NewID()), Status: StatusPending, Details: d}
	if err := s.store.CreatePending(ctx, p); err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}
	s.log.Info("order registered",
		logger.String("order", p.ID), logger.String("operator", sess.Operator), logger.String("phone", d.ClientPhone))

	s.rememberAddress(ctx, res, d, cmd.Mode)
	s.tally(ctx, sess.Operator, TallyRegistered)
	return p, nil
}

type AssignCommand struct {
	OrderID string
	Unit    string
}

// Assign moves a Pending order to InProgress. The unit must exist and be active; otherwise
// nothing is written. Trips billed to an empresa get an authorization number here.
func (s *Service) Assign(ctx context.Context, sess session.Session, cmd AssignCommand) (*InProgress, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	p, err := s.store.GetPending(ctx, cmd.OrderID)
	if errors.Is(err, ErrNotFound) {
		return nil, s.notPending(ctx, cmd.OrderID)
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(p.OrderStatus(), StatusInProgress) {
		return nil, ErrInvalidState
	}
	d, err := s.deps.Drivers.RequireActive(ctx, cmd.Unit)
	if err != nil {
		return nil, err
	}

	s.authorize(ctx, &p.Details)
	o := p.assign(d.Snapshot(s.deps.Drivers.MinTokenLen()), sess.Operator, s.now())
	if err := s.store.Promote(ctx, o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("promote order %s: %w", o.ID, err)
	}
	s.log.Info("order assigned",
		logger.String("order", o.ID), logger.String("unit", o.Unit), logger.String("operator", sess.Operator))

	s.pushAssignment(ctx, o)
	s.tally(ctx, sess.Operator, TallyAssigned)
	return o, nil
}

type DispatchCommand struct {
	Phone         string
	ClientName    string
	Address       string
	Sector        string
	Coords        types.Coords
	Destination   string
	Empresa       string
	Authorization *int64
	Unit          string
}

// Dispatch creates an order that is assigned from the start, as when a reservation comes due.
func (s *Service) Dispatch(ctx context.Context, sess session.Session, cmd DispatchCommand) (*InProgress, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	switch {
	case strings.TrimSpace(cmd.Phone) == "":
		return nil, types.Required("telefono")
	case strings.TrimSpace(cmd.Address) == "":
		return nil, types.Required("direccion")
	}
	if err := cmd.Coords.Validate(); err != nil {
		return nil, &types.ValidationError{Field: "coordenadas", Reason: err.Error()}
	}
	d, err := s.deps.Drivers.RequireActive(ctx, cmd.Unit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	det := Details{
		ClientPhone:   strings.TrimSpace(cmd.Phone),
		ClientName:    strings.TrimSpace(cmd.ClientName),
		Address:       strings.TrimSpace(cmd.Address),
		Sector:        strings.TrimSpace(cmd.Sector),
		Coords:        cmd.Coords.Normalize(),
		Station:       sess.Station,
		Destination:   strings.TrimSpace(cmd.Destination),
		Empresa:       firstNonEmpty(cmd.Empresa, CashEmpresa),
		Authorization: cmd.Authorization,
		Operator:      sess.Operator,
		CreatedAt:     now,
	}
	res, err := s.deps.Clients.Resolve(ctx, det.ClientPhone)
	resolved := err == nil
	if !resolved {
		s.log.Warning("dispatch client lookup failed", logger.String("phone", det.ClientPhone), logger.Error(err))
	} else {
		det.FullPhone = res.Phone.Full
		if res.Found {
			det.ClientType = string(res.Type)
		}
	}
	if det.Coords.IsEmpty() {
		det.Coords = s.geocode(ctx, det.Address)
	}
	s.authorize(ctx, &det)

	p := &Pending{ID: string(types.NewID()), Status: StatusPending, Details: det}
	o := p.assign(d.Snapshot(s.deps.Drivers.MinTokenLen()), sess.Operator, now)
	if err := s.store.CreateInProgress(ctx, o); err != nil {
		return nil, fmt.Errorf("create dispatched order: %w", err)
	}
	s.log.Info("order dispatched",
		logger.String("order", o.ID), logger.String("unit", o.Unit), logger.String("operator", sess.Operator))

	if resolved {
		s.rememberAddress(ctx, res, det, client.ModeManual)
	}
	s.pushAssignment(ctx, o)
	s.tally(ctx, sess.Operator, TallyAssigned)
	return o, nil
}

type CancelCommand struct {
	OrderID string
	Status  Status
	Reason  string
}

// CancelPending closes an order that never got a unit, as cancelled or as no unit available.
func (s *Service) CancelPending(ctx context.Context, sess session.Session, cmd CancelCommand) (*Terminal, error) {
	switch cmd.Status {
	case StatusCancelledUnassigned, StatusNoUnitAvailable:
	default:
		return nil, fmt.Errorf("%w: %q is not a pending cancellation", ErrBadRequest, cmd.Status)
	}
	p, err := s.store.GetPending(ctx, cmd.OrderID)
	if errors.Is(err, ErrNotFound) {
		return nil, s.notPending(ctx, cmd.OrderID)
	}
	if err != nil {
		return nil, err
	}
	tallyField := TallyCancelled
	if cmd.Status == StatusNoUnitAvailable {
		tallyField = TallyNoUnit
	}
	return s.archive(ctx, sess, p, cmd.Status, cmd.Reason, tallyField)
}

// Cancel closes an in-progress order on behalf of the client or the unit.
func (s *Service) Cancel(ctx context.Context, sess session.Session, cmd CancelCommand) (*Terminal, error) {
	switch cmd.Status {
	case StatusCancelledByClient, StatusCancelledByUnit:
	default:
		return nil, fmt.Errorf("%w: %q is not an in-progress cancellation", ErrBadRequest, cmd.Status)
	}
	o, err := s.inProgress(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, sess, o, cmd.Status, cmd.Reason, TallyCancelled)
}

type FinalizeCommand struct {
	OrderID string
	Note    string
}

func (s *Service) Finalize(ctx context.Context, sess session.Session, cmd FinalizeCommand) (*Terminal, error) {
	o, err := s.inProgress(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, sess, o, StatusFinalizedPlain, cmd.Note, TallyFinalized)
}

type VoucherCommand struct {
	OrderID        string
	ClientName     string
	Destination    string
	Empresa        string
	Kind           voucher.Kind
	PhysicalNumber string
	Amount         types.Money
}

// FinalizeVoucher archives an in-progress order billed to an empresa and records its voucher.
// Empresa defaults to the one recorded on the order. Missing voucher fields abort before
// anything is written. The voucher is keyed by the order id, so retrying after a failed
// archive reuses the stored authorization number instead of allocating another.
func (s *Service) FinalizeVoucher(ctx context.Context, sess session.Session, cmd VoucherCommand) (*Terminal, *voucher.Voucher, error) {
	if !sess.Valid() {
		return nil, nil, session.ErrNoSession
	}
	o, err := s.inProgress(ctx, cmd.OrderID)
	if err != nil {
		return nil, nil, err
	}
	v := voucher.Voucher{
		OrderID:        o.ID,
		Empresa:        firstNonEmpty(strings.TrimSpace(cmd.Empresa), o.Empresa),
		ClientName:     firstNonEmpty(cmd.ClientName, o.ClientName),
		ClientPhone:    o.ClientPhone,
		Origin:         o.Address,
		Destination:    firstNonEmpty(cmd.Destination, o.Destination),
		Unit:           o.Unit,
		Kind:           cmd.Kind,
		PhysicalNumber: cmd.PhysicalNumber,
		Amount:         cmd.Amount,
		Operator:       sess.Operator,
	}
	if v.Kind == "" {
		v.Kind = voucher.KindElectronic
	}
	if err := v.Validate(); err != nil {
		return nil, nil, err
	}
	if v.Empresa == CashEmpresa {
		return nil, nil, &types.ValidationError{Field: "empresa", Reason: "cash trips carry no voucher"}
	}

	prior, err := s.deps.Vouchers.ForOrder(ctx, o.ID)
	switch {
	case err == nil:
		v.Authorization = prior.Authorization
	case !errors.Is(err, voucher.ErrNotFound):
		return nil, nil, fmt.Errorf("read voucher %s: %w", o.ID, err)
	case o.Authorization != nil:
		v.Authorization = *o.Authorization
	default:
		v.Authorization = s.deps.Authorizations.Next(ctx)
	}
	issued, err := s.deps.Vouchers.Issue(ctx, v)
	if err != nil {
		return nil, nil, err
	}

	auth := issued.Authorization
	o.Authorization = &auth
	o.Empresa = issued.Empresa
	o.ClientName = issued.ClientName
	o.Destination = issued.Destination
	t, err := s.archive(ctx, sess, o, StatusFinalizedVoucher, "", TallyVouchers)
	if err != nil {
		return nil, nil, err
	}
	return t, issued, nil
}

// Get returns the live order with that id. Archived orders are only reachable by day.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	p, err := s.store.GetPending(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	o, err := s.store.GetInProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetArchived(ctx context.Context, day, id string) (*Terminal, error) {
	if _, err := types.ParseDay(day, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.store.GetArchived(ctx, day, id)
}

func (s *Service) ListPending(ctx context.Context) ([]Pending, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) ListInProgress(ctx context.Context) ([]InProgress, error) {
	return s.store.ListInProgress(ctx)
}

func (s *Service) ListArchived(ctx context.Context, day string) ([]Terminal, error) {
	if _, err := types.ParseDay(day, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.store.ListArchived(ctx, day)
}

// Today is the archive key of the current day in the dispatch time zone.
func (s *Service) Today() string {
	return types.Day(s.now(), s.loc)
}

type closable interface {
	Order
	close(c Closure) *Terminal
}

func (s *Service) archive(ctx context.Context, sess session.Session, o closable, to Status, reason, tallyField string) (*Terminal, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	from := o.OrderStatus()
	if !CanTransition(from, to) {
		return nil, ErrInvalidState
	}
	now := s.now()
	t := o.close(Closure{
		Status:   to,
		Reason:   strings.TrimSpace(reason),
		ClosedBy: sess.Operator,
		ClosedAt: now,
		Day:      types.Day(now, s.loc),
	})
	if err := s.store.Archive(ctx, from, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("archive order %s: %w", t.ID, err)
	}
	s.log.Info("order closed",
		logger.String("order", t.ID), logger.String("status", string(to)),
		logger.String("day", t.Day), logger.String("operator", sess.Operator))
	s.tally(ctx, sess.Operator, tallyField)
	return t, nil
}

func (s *Service) inProgress(ctx context.Context, id string) (*InProgress, error) {
	o, err := s.store.GetInProgress(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		return o, err
	}
	if _, perr := s.store.GetPending(ctx, id); perr == nil {
		return nil, ErrInvalidState
	}
	return nil, ErrNotFound
}

// notPending tells a missing order apart from one that already left Pending.
func (s *Service) notPending(ctx context.Context, id string) error {
	if _, err := s.store.GetInProgress(ctx, id); err == nil {
		return ErrInvalidState
	}
	return ErrNotFound
}

func (s *Service) authorize(ctx context.Context, d *Details) {
	if d.Authorization != nil || d.cash() {
		return
	}
	n := s.deps.Authorizations.Next(ctx)
	d.Authorization = &n
}

func (s *Service) acquire(ctx context.Context, key string) func() {
	if s.deps.Guard == nil {
		return func() {}
	}
	release, ok, err := s.deps.Guard.Acquire(ctx, key, s.guardTTL)
	if err != nil {
		s.log.Warning("registration guard unavailable", logger.String("key", key), logger.Error(err))
		return func() {}
	}
	if !ok {
		return nil
	}
	return release
}

func (s *Service) geocode(ctx context.Context, address string) types.Coords {
	if s.deps.Geocoder == nil {
		return ""
	}
	c, err := s.deps.Geocoder.Geocode(ctx, address)
	if err != nil {
		s.log.Warning("geocoding failed", logger.String("address", address), logger.Error(err))
		return ""
	}
	return c
}

// rememberAddress stores unknown clients and merges the order address into their history.
// The order already exists at this point, so failures are only logged.
func (s *Service) rememberAddress(ctx context.Context, res client.Resolution, d Details, mode client.Mode) {
	if mode == "" {
		mode = client.ModeManual
	}
	c := res.Client
	if !res.Found {
		if res.Phone.Format == client.FormatShortID {
			return
		}
		created, err := s.deps.Clients.Create(ctx, res.Phone, d.ClientName, d.Sector)
		if err != nil {
			s.log.Warning("client not created", logger.String("phone", res.Phone.Digits), logger.Error(err))
			return
		}
		c = created
	}
	if _, err := s.deps.Clients.MergeAddress(ctx, c, d.Address, d.Coords, mode); err != nil {
		s.log.Warning("client address not merged", logger.String("client", c.DocID), logger.Error(err))
	}
}

func (s *Service) pushAssignment(ctx context.Context, o *InProgress) {
	if s.deps.Push == nil {
		return
	}
	err := s.deps.Push.NotifyAssignment(ctx, o.PushToken, notify.Assignment{
		OrderID:    o.ID,
		ClientName: o.ClientName,
		Phone:      o.ClientPhone,
		Address:    o.Address,
		Sector:     o.Sector,
		Coords:     string(o.Coords),
	})
	switch {
	case errors.Is(err, notify.ErrInvalidToken):
		s.log.Info("unit has no valid push token", logger.String("order", o.ID), logger.String("unit", o.Unit))
	case err != nil:
		s.log.Warning("assignment push failed", logger.String("order", o.ID), logger.Error(err))
	}
}

func (s *Service) tally(ctx context.Context, operator, field string) {
	if s.deps.Tally != nil {
		s.deps.Tally.Add(ctx, operator, s.now(), field)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
