// README: Allocator for authorization numbers; both spaces fail open to their floor value.
package sequence

import (
	"context"

	"centraltaxi/internal/logger"
)

type Service struct {
	counter      Counter
	vouchers     VoucherLedger
	generalStart int64
	voucherFloor int64
	log          logger.ILogger
}

func NewService(counter Counter, vouchers VoucherLedger, generalStart, voucherFloor int64, log logger.ILogger) *Service {
	if generalStart <= 0 {
		generalStart = DefaultGeneralStart
	}
	if voucherFloor <= 0 {
		voucherFloor = DefaultVoucherFloor
	}
	return &Service{
		counter:      counter,
		vouchers:     vouchers,
		generalStart: generalStart,
		voucherFloor: voucherFloor,
		log:          log,
	}
}

// Next returns the next general authorization number.
// On a backend failure it returns the start value instead of an error; that value may
// already have been issued, so the failure is logged loudly for manual review.
func (s *Service) Next(ctx context.Context) int64 {
	n, err := s.counter.Increment(ctx, s.generalStart)
	if err != nil {
		s.log.Error("authorization counter unavailable, issuing fallback number",
			logger.Int64("fallback", s.generalStart), logger.Error(err))
		return s.generalStart
	}
	return n
}

// NextVoucherNumber computes max(floor, last+1) over the voucher ledger.
// It reads only and never reserves the number; two callers may see the same value.
func (s *Service) NextVoucherNumber(ctx context.Context) int64 {
	last, ok, err := s.vouchers.LastAuthorization(ctx)
	if err != nil {
		s.log.Error("voucher ledger unavailable, using floor number",
			logger.Int64("fallback", s.voucherFloor), logger.Error(err))
		return s.voucherFloor
	}
	if !ok || last+1 < s.voucherFloor {
		return s.voucherFloor
	}
	return last + 1
}
