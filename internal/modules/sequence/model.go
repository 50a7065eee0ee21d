// README: Authorization-number spaces. The general space starts at 200, the voucher display space at 40000.
package sequence

import "context"

const (
	DefaultGeneralStart int64 = 200
	DefaultVoucherFloor int64 = 40000
)

// Counter issues the next value of the general sequence atomically.
// start is the value returned when the counter document does not exist yet.
type Counter interface {
	Increment(ctx context.Context, start int64) (int64, error)
}

// VoucherLedger exposes the highest authorization number stamped on a voucher record.
type VoucherLedger interface {
	LastAuthorization(ctx context.Context) (int64, bool, error)
}
