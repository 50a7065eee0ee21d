// README: Order store backed by Firestore. Multi-document transitions run in one transaction.
package order

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	pendingCollection    = "pedidosDisponibles"
	inProgressCollection = "pedidosEnCurso"
	stagingCollection    = "pedidosNotificaciones"
	archiveCollection    = "archive"
	archiveOrders        = "orders"
)

type FirestoreStore struct {
	fs *firestore.Client
}

func NewFirestoreStore(fs *firestore.Client) *FirestoreStore {
	return &FirestoreStore{fs: fs}
}

func (s *FirestoreStore) liveRef(st Status, id string) (*firestore.DocumentRef, error) {
	switch st {
	case StatusPending:
		return s.fs.Collection(pendingCollection).Doc(id), nil
	case StatusInProgress:
		return s.fs.Collection(inProgressCollection).Doc(id), nil
	}
	return nil, ErrInvalidState
}

func (s *FirestoreStore) archiveRef(day, id string) *firestore.DocumentRef {
	return s.fs.Collection(archiveCollection).Doc(day).Collection(archiveOrders).Doc(id)
}

func (s *FirestoreStore) CreatePending(ctx context.Context, p *Pending) error {
	_, err := s.fs.Collection(pendingCollection).Doc(p.ID).Create(ctx, p)
	return err
}

func (s *FirestoreStore) GetPending(ctx context.Context, id string) (*Pending, error) {
	var p Pending
	if err := s.get(ctx, s.fs.Collection(pendingCollection).Doc(id), &p); err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

func (s *FirestoreStore) GetInProgress(ctx context.Context, id string) (*InProgress, error) {
	var o InProgress
	if err := s.get(ctx, s.fs.Collection(inProgressCollection).Doc(id), &o); err != nil {
		return nil, err
	}
	o.ID = id
	return &o, nil
}

func (s *FirestoreStore) GetArchived(ctx context.Context, day, id string) (*Terminal, error) {
	var t Terminal
	if err := s.get(ctx, s.archiveRef(day, id), &t); err != nil {
		return nil, err
	}
	t.ID = id
	return &t, nil
}

func (s *FirestoreStore) get(ctx context.Context, ref *firestore.DocumentRef, dst interface{}) error {
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return snap.DataTo(dst)
}

func (s *FirestoreStore) ListPending(ctx context.Context) ([]Pending, error) {
	var out []Pending
	err := s.each(ctx, s.fs.Collection(pendingCollection).OrderBy("fechaCreacion", firestore.Asc), func(snap *firestore.DocumentSnapshot) error {
		var p Pending
		if err := snap.DataTo(&p); err != nil {
			return err
		}
		p.ID = snap.Ref.ID
		out = append(out, p)
		return nil
	})
	return out, err
}

func (s *FirestoreStore) ListInProgress(ctx context.Context) ([]InProgress, error) {
	var out []InProgress
	err := s.each(ctx, s.fs.Collection(inProgressCollection).OrderBy("fechaAsignacion", firestore.Asc), func(snap *firestore.DocumentSnapshot) error {
		var o InProgress
		if err := snap.DataTo(&o); err != nil {
			return err
		}
		o.ID = snap.Ref.ID
		out = append(out, o)
		return nil
	})
	return out, err
}

func (s *FirestoreStore) ListArchived(ctx context.Context, day string) ([]Terminal, error) {
	q := s.fs.Collection(archiveCollection).Doc(day).Collection(archiveOrders).OrderBy("fechaCierre", firestore.Asc)
	var out []Terminal
	err := s.each(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var t Terminal
		if err := snap.DataTo(&t); err != nil {
			return err
		}
		t.ID = snap.Ref.ID
		out = append(out, t)
		return nil
	})
	return out, err
}

func (s *FirestoreStore) each(ctx context.Context, q firestore.Query, fn func(*firestore.DocumentSnapshot) error) error {
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

// Promote moves a pending order to in-progress and stages the copy for the driver app.
// The pending document must still exist when the transaction commits; a concurrent
// assignment of the same order loses with ErrNotFound.
func (s *FirestoreStore) Promote(ctx context.Context, o *InProgress) error {
	pendingRef := s.fs.Collection(pendingCollection).Doc(o.ID)
	return s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(pendingRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Create(s.fs.Collection(inProgressCollection).Doc(o.ID), o); err != nil {
			return err
		}
		if err := tx.Set(s.fs.Collection(stagingCollection).Doc(o.ID), o); err != nil {
			return err
		}
		return tx.Delete(pendingRef)
	})
}

// CreateInProgress stores an order that starts already assigned, plus its staging copy.
func (s *FirestoreStore) CreateInProgress(ctx context.Context, o *InProgress) error {
	return s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.fs.Collection(inProgressCollection).Doc(o.ID), o); err != nil {
			return err
		}
		return tx.Set(s.fs.Collection(stagingCollection).Doc(o.ID), o)
	})
}

// Archive writes the terminal copy under archive/{day}/orders/{id} and deletes the live
// document in the same transaction. The archive id equals the order id, so a retry
// overwrites instead of duplicating.
func (s *FirestoreStore) Archive(ctx context.Context, from Status, t *Terminal) error {
	live, err := s.liveRef(from, t.ID)
	if err != nil {
		return err
	}
	return s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(live); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Set(s.archiveRef(t.Day, t.ID), t); err != nil {
			return err
		}
		return tx.Delete(live)
	})
}
