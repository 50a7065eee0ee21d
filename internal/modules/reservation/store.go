// README: Reservation store backed by Firestore.
package reservation

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collection = "reservas"

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) Create(ctx context.Context, r *Reservation) error {
	_, err := s.fs.Collection(collection).Doc(r.ID).Create(ctx, r)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Reservation, error) {
	snap, err := s.fs.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

// List returns reservations by schedule; an empty state lists all of them.
func (s *Store) List(ctx context.Context, state State) ([]Reservation, error) {
	q := s.fs.Collection(collection).Query
	if state != "" {
		q = q.Where("estado", "==", string(state))
	}
	it := q.OrderBy("fechaReserva", firestore.Asc).Documents(ctx)
	defer it.Stop()

	var out []Reservation
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		r, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
}

// MarkAssigned flips a pending reservation to asignada. The record itself is kept.
func (s *Store) MarkAssigned(ctx context.Context, id string, a Assignment) error {
	ref := s.fs.Collection(collection).Doc(id)
	return s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if st, _ := snap.Data()["estado"].(string); State(st) == StateAssigned {
			return ErrAlreadyAssigned
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "estado", Value: string(StateAssigned)},
			{Path: "unidad", Value: a.Unit},
			{Path: "pedidoId", Value: a.OrderID},
			{Path: "autorizacion", Value: a.Authorization},
			{Path: "asignadoPor", Value: a.By},
			{Path: "fechaAsignacion", Value: a.At},
		})
	})
}

func decode(snap *firestore.DocumentSnapshot) (*Reservation, error) {
	var r Reservation
	if err := snap.DataTo(&r); err != nil {
		return nil, err
	}
	r.ID = snap.Ref.ID
	return &r, nil
}
