// README: Order service tests (lifecycle, preconditions, voucher finalization) against in-memory collaborators.
package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/modules/notify"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

// memStore mirrors the Firestore layout: three live collections and a day-partitioned archive.
type memStore struct {
	mu         sync.Mutex
	pending    map[string]Pending
	inProgress map[string]InProgress
	staging    map[string]InProgress
	archive    map[string]map[string]Terminal
	writes     int
	archiveErr error
}

func newMemStore() *memStore {
	return &memStore{
		pending:    map[string]Pending{},
		inProgress: map[string]InProgress{},
		staging:    map[string]InProgress{},
		archive:    map[string]map[string]Terminal{},
	}
}

func (m *memStore) CreatePending(_ context.Context, p *Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.pending[p.ID] = *p
	return nil
}

func (m *memStore) GetPending(_ context.Context, id string) (*Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStore) GetInProgress(_ context.Context, id string) (*InProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.inProgress[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memStore) GetArchived(_ context.Context, day, id string) (*Terminal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.archive[day][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memStore) ListPending(context.Context) ([]Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Pending
	for _, p := range m.pending {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) ListInProgress(context.Context) ([]InProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []InProgress
	for _, o := range m.inProgress {
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) ListArchived(_ context.Context, day string) ([]Terminal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Terminal
	for _, t := range m.archive[day] {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) Promote(_ context.Context, o *InProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[o.ID]; !ok {
		return ErrNotFound
	}
	m.writes += 3
	m.inProgress[o.ID] = *o
	m.staging[o.ID] = *o
	delete(m.pending, o.ID)
	return nil
}

func (m *memStore) CreateInProgress(_ context.Context, o *InProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes += 2
	m.inProgress[o.ID] = *o
	m.staging[o.ID] = *o
	return nil
}

func (m *memStore) Archive(_ context.Context, from Status, t *Terminal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch from {
	case StatusPending:
		if _, ok := m.pending[t.ID]; !ok {
			return ErrNotFound
		}
	case StatusInProgress:
		if _, ok := m.inProgress[t.ID]; !ok {
			return ErrNotFound
		}
	default:
		return ErrInvalidState
	}
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.writes += 2
	if m.archive[t.Day] == nil {
		m.archive[t.Day] = map[string]Terminal{}
	}
	m.archive[t.Day][t.ID] = *t
	delete(m.pending, t.ID)
	delete(m.inProgress, t.ID)
	return nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type memClients struct {
	mu    sync.Mutex
	docs  map[client.Collection]map[string]*client.Client
	saves int
}

func newMemClients() *memClients {
	return &memClients{docs: map[client.Collection]map[string]*client.Client{}}
}

func (m *memClients) put(coll client.Collection, id string, c client.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[coll] == nil {
		m.docs[coll] = map[string]*client.Client{}
	}
	c.DocID, c.Collection = id, coll
	m.docs[coll][id] = &c
}

func (m *memClients) GetByID(_ context.Context, coll client.Collection, id string) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.docs[coll][id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, client.ErrNotFound
}

func (m *memClients) FindByPhone(_ context.Context, coll client.Collection, phone string) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs[coll] {
		if c.Phone == phone {
			cp := *c
			return &cp, nil
		}
	}
	return nil, client.ErrNotFound
}

func (m *memClients) FindByShortID(_ context.Context, coll client.Collection, id int64) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs[coll] {
		if c.ShortID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, client.ErrNotFound
}

func (m *memClients) Create(_ context.Context, c *client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[c.Collection] == nil {
		m.docs[c.Collection] = map[string]*client.Client{}
	}
	cp := *c
	m.docs[c.Collection][c.DocID] = &cp
	return nil
}

func (m *memClients) SaveAddresses(_ context.Context, coll client.Collection, docID string, list []client.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.docs[coll][docID].Addresses = list
	return nil
}

type memRegistry struct {
	drivers []driver.Driver
}

func (r *memRegistry) ByUnit(_ context.Context, unit string) (*driver.Driver, error) {
	for _, d := range r.drivers {
		if d.Unit == unit {
			cp := d
			return &cp, nil
		}
	}
	return nil, driver.ErrUnitNotFound
}

func (r *memRegistry) Get(context.Context, string) (*driver.Driver, error) {
	return nil, driver.ErrUnitNotFound
}
func (r *memRegistry) Save(context.Context, *driver.Driver) error { return nil }
func (r *memRegistry) SetStatus(context.Context, string, bool, time.Time) error {
	return nil
}
func (r *memRegistry) SetPhoto(context.Context, string, string, string, time.Time) error {
	return nil
}

type seqCounter struct {
	mu   sync.Mutex
	last int64
}

func (c *seqCounter) Next(context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == 0 {
		c.last = 199
	}
	c.last++
	return c.last
}

type memLedger struct {
	mu      sync.Mutex
	byOrder map[string]voucher.Voucher
}

func (l *memLedger) Save(_ context.Context, v *voucher.Voucher) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byOrder[v.OrderID] = *v
	return nil
}

func (l *memLedger) Get(_ context.Context, id string) (*voucher.Voucher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.byOrder[id]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	return &v, nil
}

func (l *memLedger) ListBetween(context.Context, time.Time, time.Time) ([]voucher.Voucher, error) {
	return nil, nil
}

type pushed struct {
	token string
	a     notify.Assignment
}

type recordPush struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *recordPush) NotifyAssignment(_ context.Context, token string, a notify.Assignment) error {
	if !notify.ValidToken(token, notify.DefaultMinTokenLen) {
		return notify.ErrInvalidToken
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{token, a})
	return nil
}

type recordTally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recordTally) Add(_ context.Context, operator string, _ time.Time, field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[operator+"/"+field]++
}

func (r *recordTally) get(operator, field string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[operator+"/"+field]
}

type fixedGeocoder types.Coords

func (g fixedGeocoder) Geocode(context.Context, string) (types.Coords, error) {
	return types.Coords(g), nil
}

type memGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func (g *memGuard) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, false, nil
	}
	g.held[key] = true
	return func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}, true, nil
}

var (
	testNow  = time.Date(2026, 10, 15, 21, 30, 0, 0, time.UTC)
	testDay  = "15-10-2026"
	operator = session.Session{UID: "uid-maria", Operator: "maria", Station: "Central"}
	token    = strings.Repeat("x", 152)
)

type harness struct {
	svc     *Service
	store   *memStore
	clients *memClients
	ledger  *memLedger
	auth    *seqCounter
	push    *recordPush
	tally   *recordTally
	guard   *memGuard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemStore(),
		clients: newMemClients(),
		ledger:  &memLedger{byOrder: map[string]voucher.Voucher{}},
		auth:    &seqCounter{},
		push:    &recordPush{},
		tally:   &recordTally{counts: map[string]int{}},
		guard:   &memGuard{held: map[string]bool{}},
	}
	clock := func() time.Time { return testNow }
	log := logger.Nop()
	registry := &memRegistry{drivers: []driver.Driver{
		{ID: "d12", Unit: "12", Name: "Pedro", Plate: "PBA-1234", Color: "amarillo", Phone: "593987000012", Estatus: true, Token: token},
		{ID: "d13", Unit: "13", Name: "Luis", Estatus: "false", Token: token},
		{ID: "d14", Unit: "14", Name: "Jose", Estatus: false},
		{ID: "d15", Unit: "15", Name: "Raul", Estatus: true, Token: "short"},
	}}
	deps := Deps{
		Clients:        client.NewService(h.clients, "593", log).WithClock(clock),
		Drivers:        driver.NewService(registry, nil, nil, nil, notify.DefaultMinTokenLen, log),
		Authorizations: h.auth,
		Vouchers:       voucher.NewService(h.ledger, nil, log).WithClock(clock),
		Push:           h.push,
		Geocoder:       fixedGeocoder("-2.170998,-79.922359"),
		Guard:          h.guard,
		Tally:          h.tally,
	}
	h.svc = NewService(h.store, deps, time.UTC, time.Second, log).WithClock(clock)
	return h
}

func (h *harness) register(t *testing.T, cmd RegisterCommand) *Pending {
	t.Helper()
	p, err := h.svc.Register(context.Background(), operator, cmd)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func (h *harness) assigned(t *testing.T, empresa string) *InProgress {
	t.Helper()
	p := h.register(t, RegisterCommand{Phone: "0987654321", ClientName: "Ana", Address: "Av. 9 de Octubre 100", Empresa: empresa})
	o, err := h.svc.Assign(context.Background(), operator, AssignCommand{OrderID: p.ID, Unit: "12"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return o
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCancelledUnassigned, true},
		{StatusPending, StatusNoUnitAvailable, true},
		{StatusInProgress, StatusCancelledByClient, true},
		{StatusInProgress, StatusCancelledByUnit, true},
		{StatusInProgress, StatusFinalizedPlain, true},
		{StatusInProgress, StatusFinalizedVoucher, true},
		// no skipping the assignment
		{StatusPending, StatusFinalizedPlain, false},
		{StatusPending, StatusFinalizedVoucher, false},
		{StatusPending, StatusCancelledByUnit, false},
		// no going back
		{StatusInProgress, StatusPending, false},
		{StatusInProgress, StatusCancelledUnassigned, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	for st := range archiveColors {
		if !st.Terminal() {
			t.Errorf("%s should be terminal", st)
		}
		for _, to := range []Status{StatusPending, StatusInProgress, StatusFinalizedPlain} {
			if CanTransition(st, to) {
				t.Errorf("terminal %s must not transition to %s", st, to)
			}
		}
	}
	if StatusPending.Terminal() || StatusInProgress.Terminal() {
		t.Fatal("live statuses are not terminal")
	}
}

func TestRegisterResolvesNormalizedPhone(t *testing.T) {
	h := newHarness(t)
	h.clients.put(client.CollectionMobile, "auto-1", client.Client{
		Phone: "593987654321",
		Name:  "Ana Torres",
		Addresses: []client.Address{
			{Text: "Cdla. Kennedy Mz 4", Coords: "-2.17,-79.90", Active: true},
		},
	})

	p := h.register(t, RegisterCommand{Phone: "0987654321"})
	if p.ClientPhone != "593987654321" || p.FullPhone != "593987654321" {
		t.Fatalf("unexpected phones %q / %q", p.ClientPhone, p.FullPhone)
	}
	if p.ClientName != "Ana Torres" || p.Address != "Cdla. Kennedy Mz 4" || p.Coords != "-2.17,-79.90" {
		t.Fatalf("active address not pre-populated: %+v", p.Details)
	}
	if p.ClientType != string(client.CollectionMobile) || p.Empresa != CashEmpresa || p.Station != "Central" {
		t.Fatalf("unexpected details %+v", p.Details)
	}
	if p.Authorization != nil {
		t.Fatal("pending orders carry no authorization")
	}
	if _, err := h.store.GetPending(context.Background(), p.ID); err != nil {
		t.Fatal("pending document missing")
	}
	if h.clients.saves != 0 {
		t.Fatal("same address must not rewrite the client")
	}
	if h.tally.get("maria", TallyRegistered) != 1 {
		t.Fatal("registration not counted")
	}
}

func TestRegisterCreatesUnknownClientAndGeocodes(t *testing.T) {
	h := newHarness(t)
	p := h.register(t, RegisterCommand{Phone: "2345678", ClientName: "Hotel Oro Verde", Address: "Av. 9 de Octubre 100", Mode: client.ModeApp})
	if p.Coords != "-2.170998,-79.922359" {
		t.Fatalf("coordinates not geocoded: %q", p.Coords)
	}
	c, err := h.clients.GetByID(context.Background(), client.CollectionFixed, "2345678")
	if err != nil {
		t.Fatalf("client not created: %v", err)
	}
	if len(c.Addresses) != 1 || c.Addresses[0].Mode != client.ModeApp || !c.Addresses[0].Active {
		t.Fatalf("address not merged: %+v", c.Addresses)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cases := []struct {
		name  string
		cmd   RegisterCommand
		field string
	}{
		{name: "no phone", cmd: RegisterCommand{Address: "x"}, field: "telefono"},
		{name: "no address for unknown client", cmd: RegisterCommand{Phone: "0991112222"}, field: "direccion"},
		{name: "bad coords", cmd: RegisterCommand{Phone: "0991112222", Address: "x", Coords: "north"}, field: "coordenadas"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Register(ctx, operator, tc.cmd)
			var verr *types.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if _, err := h.svc.Register(ctx, operator, RegisterCommand{Phone: "12ab"}); !errors.Is(err, client.ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if _, err := h.svc.Register(ctx, session.Session{}, RegisterCommand{Phone: "2345678", Address: "x"}); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if h.store.writeCount() != 0 {
		t.Fatal("rejected registrations must not write")
	}
}

func TestRegisterRejectsDoubleSubmit(t *testing.T) {
	h := newHarness(t)
	release, ok, _ := h.guard.Acquire(context.Background(), "registro:"+operator.UID, time.Second)
	if !ok {
		t.Fatal("guard not acquired")
	}
	if _, err := h.svc.Register(context.Background(), operator, RegisterCommand{Phone: "2345678", Address: "x"}); !errors.Is(err, ErrDuplicateSubmit) {
		t.Fatalf("expected ErrDuplicateSubmit, got %v", err)
	}
	release()
	h.register(t, RegisterCommand{Phone: "2345678", Address: "x"})
}

func TestAssignActiveUnit(t *testing.T) {
	h := newHarness(t)
	p := h.register(t, RegisterCommand{Phone: "0987654321", ClientName: "Ana", Address: "Av. 9 de Octubre 100", Empresa: "Acosaustro"})

	o, err := h.svc.Assign(context.Background(), operator, AssignCommand{OrderID: p.ID, Unit: "12"})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != p.ID || o.Status != StatusInProgress {
		t.Fatalf("unexpected order %+v", o)
	}
	if o.Unit != "12" || o.Name != "Pedro" || o.Plate != "PBA-1234" || o.Color != "amarillo" || o.PushToken != token {
		t.Fatalf("driver snapshot not embedded: %+v", o.Snapshot)
	}
	if o.Authorization == nil || *o.Authorization != 200 {
		t.Fatalf("expected authorization 200, got %v", o.Authorization)
	}
	if _, err := h.store.GetPending(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("pending document still present")
	}
	if _, ok := h.store.staging[p.ID]; !ok {
		t.Fatal("notification copy not staged")
	}
	got, err := h.svc.Get(context.Background(), p.ID)
	if err != nil || got.OrderStatus() != StatusInProgress {
		t.Fatalf("get: %v %v", got, err)
	}
	if len(h.push.sent) != 1 || h.push.sent[0].a.OrderID != p.ID {
		t.Fatalf("driver not notified: %+v", h.push.sent)
	}
}

func TestAssignCashOrderHasNoAuthorization(t *testing.T) {
	h := newHarness(t)
	o := h.assigned(t, "")
	if o.Authorization != nil {
		t.Fatalf("cash order got authorization %d", *o.Authorization)
	}
}

func TestAssignPreconditionsLeaveOrderPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.register(t, RegisterCommand{Phone: "2345678", Address: "x", Empresa: "Acosaustro"})
	before := h.store.writeCount()

	if _, err := h.svc.Assign(ctx, operator, AssignCommand{OrderID: p.ID, Unit: "99"}); !errors.Is(err, driver.ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
	for _, unit := range []string{"13", "14"} {
		var inactive *driver.InactiveUnitError
		if _, err := h.svc.Assign(ctx, operator, AssignCommand{OrderID: p.ID, Unit: unit}); !errors.As(err, &inactive) || inactive.Unit != unit {
			t.Fatalf("unit %s: expected InactiveUnitError, got %v", unit, err)
		}
	}

	if h.store.writeCount() != before {
		t.Fatal("failed assignments must not write")
	}
	got, err := h.store.GetPending(ctx, p.ID)
	if err != nil || got.Authorization != nil {
		t.Fatalf("order changed: %+v %v", got, err)
	}
	if len(h.push.sent) != 0 || h.tally.get("maria", TallyAssigned) != 0 {
		t.Fatal("failed assignments must have no side effects")
	}
}

func TestAssignWithoutValidTokenStillProceeds(t *testing.T) {
	h := newHarness(t)
	p := h.register(t, RegisterCommand{Phone: "2345678", Address: "x"})
	o, err := h.svc.Assign(context.Background(), operator, AssignCommand{OrderID: p.ID, Unit: "15"})
	if err != nil {
		t.Fatal(err)
	}
	if o.PushToken != "" || len(h.push.sent) != 0 {
		t.Fatal("short token must not be pushed")
	}
}

func TestAssignTwiceIsInvalidState(t *testing.T) {
	h := newHarness(t)
	o := h.assigned(t, "")
	if _, err := h.svc.Assign(context.Background(), operator, AssignCommand{OrderID: o.ID, Unit: "12"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := h.svc.Assign(context.Background(), operator, AssignCommand{OrderID: "missing", Unit: "12"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.register(t, RegisterCommand{Phone: "2345678", Address: "x"})

	if _, err := h.svc.CancelPending(ctx, operator, CancelCommand{OrderID: p.ID, Status: StatusFinalizedPlain}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	tm, err := h.svc.CancelPending(ctx, operator, CancelCommand{OrderID: p.ID, Status: StatusNoUnitAvailable, Reason: " sin unidades "})
	if err != nil {
		t.Fatal(err)
	}
	if tm.Status != StatusNoUnitAvailable || tm.Reason != "sin unidades" || tm.AssignedAt != nil || tm.Unit != "" {
		t.Fatalf("unexpected terminal %+v", tm)
	}
	if tm.Day != testDay || tm.DisplayColor == "" || tm.ClosedBy != "maria" {
		t.Fatalf("unexpected closure metadata %+v", tm)
	}
	if _, err := h.svc.GetArchived(ctx, testDay, p.ID); err != nil {
		t.Fatalf("archive copy missing: %v", err)
	}
	if h.tally.get("maria", TallyNoUnit) != 1 {
		t.Fatal("no-unit not counted")
	}
}

func TestCancelInProgressRejectsPendingKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "")

	if _, err := h.svc.CancelPending(ctx, operator, CancelCommand{OrderID: o.ID, Status: StatusCancelledUnassigned}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	tm, err := h.svc.Cancel(ctx, operator, CancelCommand{OrderID: o.ID, Status: StatusCancelledByUnit, Reason: "llanta"})
	if err != nil {
		t.Fatal(err)
	}
	if tm.Unit != "12" || tm.AssignedAt == nil || tm.Status != StatusCancelledByUnit {
		t.Fatalf("assigned unit not carried into archive: %+v", tm)
	}
}

func TestTerminalOrdersCannotBeResurrected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "")
	if _, err := h.svc.Finalize(ctx, operator, FinalizeCommand{OrderID: o.ID}); err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.Get(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("live document should be gone, got %v", err)
	}
	if _, err := h.svc.Assign(ctx, operator, AssignCommand{OrderID: o.ID, Unit: "12"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("assign after finalize: %v", err)
	}
	if _, err := h.svc.Finalize(ctx, operator, FinalizeCommand{OrderID: o.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("finalize twice: %v", err)
	}
	if _, err := h.svc.Cancel(ctx, operator, CancelCommand{OrderID: o.ID, Status: StatusCancelledByClient}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel after finalize: %v", err)
	}
	if _, err := h.svc.CancelPending(ctx, operator, CancelCommand{OrderID: o.ID, Status: StatusCancelledUnassigned}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel pending after finalize: %v", err)
	}

	archived, err := h.svc.ListArchived(ctx, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 || archived[0].Status != StatusFinalizedPlain {
		t.Fatalf("expected one archived order, got %+v", archived)
	}
	live, _ := h.svc.ListInProgress(ctx)
	pending, _ := h.svc.ListPending(ctx)
	if len(live)+len(pending) != 0 {
		t.Fatal("no live copies may remain")
	}
}

func TestFinalizeVoucher(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "")

	tm, v, err := h.svc.FinalizeVoucher(ctx, operator, VoucherCommand{
		OrderID:     o.ID,
		Empresa:     "Acosaustro",
		Destination: "Airport",
		Amount:      types.Cents(1250),
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Authorization != 200 || v.Empresa != "Acosaustro" || v.ClientName != "Ana" || v.Unit != "12" || v.Kind != voucher.KindElectronic {
		t.Fatalf("unexpected voucher %+v", v)
	}
	if tm.Status != StatusFinalizedVoucher || tm.Authorization == nil || *tm.Authorization != v.Authorization || tm.Destination != "Airport" {
		t.Fatalf("unexpected terminal %+v", tm)
	}
	if _, err := h.store.GetArchived(ctx, testDay, o.ID); err != nil {
		t.Fatal("not archived under today's day")
	}
	if _, err := h.store.GetInProgress(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("live in-progress document still present")
	}
	if _, ok := h.ledger.byOrder[o.ID]; !ok {
		t.Fatal("voucher record missing")
	}
	if h.tally.get("maria", TallyVouchers) != 1 {
		t.Fatal("voucher not counted")
	}
}

func TestFinalizeVoucherReusesAuthorization(t *testing.T) {
	h := newHarness(t)
	o := h.assigned(t, "Acosaustro")
	_, v, err := h.svc.FinalizeVoucher(context.Background(), operator, VoucherCommand{
		OrderID: o.ID, Empresa: "Acosaustro", Destination: "Airport", Kind: voucher.KindPhysical, PhysicalNumber: "F-0091",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Authorization != *o.Authorization || v.PhysicalNumber != "F-0091" {
		t.Fatalf("expected authorization %d reused, got %+v", *o.Authorization, v)
	}
}

func TestFinalizeVoucherRetryAfterArchiveFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "")
	cmd := VoucherCommand{OrderID: o.ID, Empresa: "Acosaustro", Destination: "Airport"}

	h.store.archiveErr = errors.New("deadline exceeded")
	if _, _, err := h.svc.FinalizeVoucher(ctx, operator, cmd); err == nil {
		t.Fatal("expected archive failure")
	}
	first, ok := h.ledger.byOrder[o.ID]
	if !ok || first.Authorization != 200 {
		t.Fatalf("voucher not recorded on first attempt: %+v", first)
	}

	h.store.archiveErr = nil
	tm, v, err := h.svc.FinalizeVoucher(ctx, operator, cmd)
	if err != nil {
		t.Fatal(err)
	}
	if v.Authorization != 200 || *tm.Authorization != 200 {
		t.Fatalf("retry must reuse authorization 200, got voucher %d terminal %d", v.Authorization, *tm.Authorization)
	}
	if next := h.auth.Next(ctx); next != 201 {
		t.Fatalf("retry allocated a general number; next = %d, want 201", next)
	}
}

func TestFinalizeVoucherDefaultsToOrderEmpresa(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "Acosaustro")
	tm, v, err := h.svc.FinalizeVoucher(ctx, operator, VoucherCommand{OrderID: o.ID, Destination: "Airport"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Empresa != "Acosaustro" || tm.Empresa != "Acosaustro" {
		t.Fatalf("empresa not carried from order: voucher %q terminal %q", v.Empresa, tm.Empresa)
	}

	cash := h.assigned(t, "")
	_, _, err = h.svc.FinalizeVoucher(ctx, operator, VoucherCommand{OrderID: cash.ID, Destination: "Airport"})
	var verr *types.ValidationError
	if !errors.As(err, &verr) || verr.Field != "empresa" {
		t.Fatalf("cash order must still be rejected, got %v", err)
	}
}

func TestFinalizeVoucherValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.assigned(t, "")
	cases := []struct {
		name  string
		cmd   VoucherCommand
		field string
	}{
		{name: "no empresa", cmd: VoucherCommand{Destination: "Airport"}, field: "empresa"},
		{name: "no destination", cmd: VoucherCommand{Empresa: "Acosaustro"}, field: "destino"},
		{name: "physical without number", cmd: VoucherCommand{Empresa: "Acosaustro", Destination: "Airport", Kind: voucher.KindPhysical}, field: "numeroFisico"},
		{name: "cash", cmd: VoucherCommand{Empresa: CashEmpresa, Destination: "Airport"}, field: "empresa"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cmd.OrderID = o.ID
			_, _, err := h.svc.FinalizeVoucher(ctx, operator, tc.cmd)
			var verr *types.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if _, err := h.store.GetInProgress(ctx, o.ID); err != nil {
		t.Fatal("invalid voucher must leave the order in progress")
	}
	if len(h.ledger.byOrder) != 0 {
		t.Fatal("invalid voucher must not be recorded")
	}
}

func TestFinalizeVoucherOnPendingIsInvalid(t *testing.T) {
	h := newHarness(t)
	p := h.register(t, RegisterCommand{Phone: "2345678", ClientName: "Ana", Address: "x"})
	_, _, err := h.svc.FinalizeVoucher(context.Background(), operator, VoucherCommand{OrderID: p.ID, Empresa: "Acosaustro", Destination: "Airport"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestDispatchCreatesAssignedOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	auth := int64(345)
	o, err := h.svc.Dispatch(ctx, operator, DispatchCommand{
		Phone:         "0991234567",
		ClientName:    "Carlos",
		Address:       "Urdesa Central",
		Empresa:       "Acosaustro",
		Authorization: &auth,
		Unit:          "12",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != StatusInProgress || *o.Authorization != 345 || o.Unit != "12" || o.FullPhone != "593991234567" {
		t.Fatalf("unexpected dispatched order %+v", o)
	}
	if _, ok := h.store.staging[o.ID]; !ok {
		t.Fatal("dispatched order not staged")
	}
	c, err := h.clients.GetByID(ctx, client.CollectionMobile, "593991234567")
	if err != nil || len(c.Addresses) != 1 {
		t.Fatalf("dispatch must remember the address: %+v %v", c, err)
	}

	if _, err := h.svc.Dispatch(ctx, operator, DispatchCommand{Phone: "0991234567", Address: "x", Unit: "13"}); err == nil {
		t.Fatal("inactive unit must block dispatch")
	}
}

func TestListArchivedRejectsBadDay(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.ListArchived(context.Background(), "2026-10-15"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if h.svc.Today() != testDay {
		t.Fatalf("today = %s", h.svc.Today())
	}
}
