// README: Daily counters in Firestore, bumped with server-side increments.
package report

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collection = "reportesDiarios"

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) Increment(ctx context.Context, operator, day, field string, at time.Time) error {
	_, err := s.fs.Collection(collection).Doc(DocID(operator, day)).Set(ctx, map[string]interface{}{
		"operador":    operator,
		"fecha":       day,
		field:         firestore.Increment(1),
		"actualizado": at,
	}, firestore.MergeAll)
	return err
}

// Get returns the counters of that day; a day without activity reads as zeros.
func (s *Store) Get(ctx context.Context, operator, day string) (*Daily, error) {
	snap, err := s.fs.Collection(collection).Doc(DocID(operator, day)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &Daily{Operator: operator, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	var d Daily
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &d, nil
}
