// README: Client store backed by Firestore; one struct serves all three client collections.
package client

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) GetByID(ctx context.Context, coll Collection, id string) (*Client, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := s.fs.Collection(string(coll)).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(coll, snap)
}

func (s *Store) FindByPhone(ctx context.Context, coll Collection, phone string) (*Client, error) {
	return s.first(ctx, coll, s.fs.Collection(string(coll)).Where("telefono", "==", phone).Limit(1))
}

func (s *Store) FindByShortID(ctx context.Context, coll Collection, id int64) (*Client, error) {
	return s.first(ctx, coll, s.fs.Collection(string(coll)).Where("id_cliente", "==", id).Limit(1))
}

func (s *Store) Create(ctx context.Context, c *Client) error {
	_, err := s.fs.Collection(string(c.Collection)).Doc(c.DocID).Create(ctx, c)
	return err
}

func (s *Store) SaveAddresses(ctx context.Context, coll Collection, docID string, list []Address) error {
	_, err := s.fs.Collection(string(coll)).Doc(docID).Update(ctx, []firestore.Update{
		{Path: "direcciones", Value: list},
	})
	return err
}

func (s *Store) first(ctx context.Context, coll Collection, q firestore.Query) (*Client, error) {
	it := q.Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(coll, snap)
}

func decode(coll Collection, snap *firestore.DocumentSnapshot) (*Client, error) {
	var c Client
	if err := snap.DataTo(&c); err != nil {
		return nil, err
	}
	c.DocID = snap.Ref.ID
	c.Collection = coll
	return &c, nil
}
