// README: Voucher ledger in Firestore, keyed by order id so a repeated write is harmless.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"centraltaxi/internal/types"
)

const collection = "voucherCorporativos"

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) Save(ctx context.Context, v *Voucher) error {
	_, err := s.fs.Collection(collection).Doc(v.OrderID).Set(ctx, v)
	return err
}

func (s *Store) Get(ctx context.Context, orderID string) (*Voucher, error) {
	snap, err := s.fs.Collection(collection).Doc(orderID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var v Voucher
	if err := snap.DataTo(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// LastAuthorization returns the highest numeroAutorizacion in the ledger.
func (s *Store) LastAuthorization(ctx context.Context) (int64, bool, error) {
	it := s.fs.Collection(collection).OrderBy("numeroAutorizacion", firestore.Desc).Limit(1).Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := types.WholeNumber(snap.Data()["numeroAutorizacion"])
	if err != nil {
		return 0, false, fmt.Errorf("voucher %s numeroAutorizacion: %w", snap.Ref.ID, err)
	}
	return n, true, nil
}

// ListBetween returns vouchers issued in [from, to), oldest first.
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]Voucher, error) {
	it := s.fs.Collection(collection).
		Where("fecha", ">=", from).
		Where("fecha", "<", to).
		OrderBy("fecha", firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	var out []Voucher
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var v Voucher
		if err := snap.DataTo(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
