// README: Voucher service: issue records for finalized orders and list them for export.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/types"
)

type Ledger interface {
	Save(ctx context.Context, v *Voucher) error
	Get(ctx context.Context, orderID string) (*Voucher, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Voucher, error)
}

// Numbers is the display-side allocator of the 40000 space.
type Numbers interface {
	NextVoucherNumber(ctx context.Context) int64
}

type Service struct {
	ledger  Ledger
	numbers Numbers
	now     types.Clock
	log     logger.ILogger
}

func NewService(ledger Ledger, numbers Numbers, log logger.ILogger) *Service {
	return &Service{ledger: ledger, numbers: numbers, now: time.Now, log: log}
}

func (s *Service) WithClock(c types.Clock) *Service {
	s.now = c
	return s
}

// Issue validates and stores a voucher. Issuing again for the same order returns the
// stored record untouched, so a retried finalization never re-bills.
func (s *Service) Issue(ctx context.Context, v Voucher) (*Voucher, error) {
	if strings.TrimSpace(v.OrderID) == "" {
		return nil, types.Required("orderId")
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.Authorization <= 0 {
		return nil, &types.ValidationError{Field: "numeroAutorizacion", Reason: "not allocated"}
	}
	existing, err := s.ledger.Get(ctx, v.OrderID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("read voucher %s: %w", v.OrderID, err)
	}

	v.ClientName = strings.TrimSpace(v.ClientName)
	v.Destination = strings.TrimSpace(v.Destination)
	v.Empresa = strings.TrimSpace(v.Empresa)
	v.PhysicalNumber = strings.TrimSpace(v.PhysicalNumber)
	if v.Kind == KindElectronic {
		v.PhysicalNumber = ""
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	if err := s.ledger.Save(ctx, &v); err != nil {
		return nil, fmt.Errorf("save voucher %s: %w", v.OrderID, err)
	}
	s.log.Info("voucher issued",
		logger.String("order", v.OrderID), logger.Int64("authorization", v.Authorization),
		logger.String("empresa", v.Empresa))
	return &v, nil
}

// ForOrder returns the voucher already issued for the order, or ErrNotFound.
func (s *Service) ForOrder(ctx context.Context, orderID string) (*Voucher, error) {
	return s.ledger.Get(ctx, orderID)
}

func (s *Service) NextNumber(ctx context.Context) int64 {
	return s.numbers.NextVoucherNumber(ctx)
}

// List returns the vouchers of the days [from, to], both inclusive.
func (s *Service) List(ctx context.Context, from, to time.Time) ([]Voucher, error) {
	if to.Before(from) {
		return nil, &types.ValidationError{Field: "to", Reason: "before from"}
	}
	return s.ledger.ListBetween(ctx, from, to.AddDate(0, 0, 1))
}
