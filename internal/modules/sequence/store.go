// README: Firestore-backed singleton counter; every allocation runs inside a transaction.
package sequence

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"centraltaxi/internal/types"
)

const (
	counterCollection = "contadores"
	counterDoc        = "autorizaciones"
	counterField      = "ultimo"
)

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

// Increment reads the last issued value and writes value+1 in the same transaction,
// so concurrent operators never receive the same number. A counter document whose
// value cannot be read is an error, never a restart from start.
func (s *Store) Increment(ctx context.Context, start int64) (int64, error) {
	ref := s.fs.Collection(counterCollection).Doc(counterDoc)
	var next int64
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var data map[string]interface{}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			data = snap.Data()
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}
		next, err = nextValue(data, start)
		if err != nil {
			return err
		}
		return tx.Set(ref, map[string]interface{}{
			counterField:  next,
			"actualizado": time.Now(),
		}, firestore.MergeAll)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// nextValue computes the number after the stored one; data is nil when the counter
// document does not exist yet.
func nextValue(data map[string]interface{}, start int64) (int64, error) {
	if data == nil {
		return start, nil
	}
	v, err := types.WholeNumber(data[counterField])
	if err != nil {
		return 0, fmt.Errorf("counter %s/%s field %s: %w", counterCollection, counterDoc, counterField, err)
	}
	return v + 1, nil
}
