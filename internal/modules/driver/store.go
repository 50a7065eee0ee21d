// README: Driver registry backed by Firestore (collection conductores), looked up by unit number.
package driver

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collection = "conductores"

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

// ByUnit finds the driver for a unit. Older records keep unidad as a number, so a numeric
// unit is tried both ways.
func (s *Store) ByUnit(ctx context.Context, unit string) (*Driver, error) {
	d, err := s.findOne(ctx, s.fs.Collection(collection).Where("unidad", "==", unit).Limit(1))
	if !errors.Is(err, ErrUnitNotFound) {
		return d, err
	}
	if n, convErr := strconv.ParseInt(unit, 10, 64); convErr == nil {
		return s.findOne(ctx, s.fs.Collection(collection).Where("unidad", "==", n).Limit(1))
	}
	return nil, ErrUnitNotFound
}

func (s *Store) Get(ctx context.Context, id string) (*Driver, error) {
	snap, err := s.fs.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (s *Store) Save(ctx context.Context, d *Driver) error {
	d.UnitRaw = d.Unit
	_, err := s.fs.Collection(collection).Doc(d.ID).Set(ctx, d)
	return err
}

func (s *Store) SetStatus(ctx context.Context, id string, active bool, at time.Time) error {
	_, err := s.fs.Collection(collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "estatus", Value: active},
		{Path: "fechaActualizacion", Value: at},
	})
	return err
}

func (s *Store) SetPhoto(ctx context.Context, id, url, path string, at time.Time) error {
	_, err := s.fs.Collection(collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "foto", Value: url},
		{Path: "fotoRuta", Value: path},
		{Path: "fechaActualizacion", Value: at},
	})
	return err
}

func (s *Store) findOne(ctx context.Context, q firestore.Query) (*Driver, error) {
	it := q.Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func decode(snap *firestore.DocumentSnapshot) (*Driver, error) {
	var d Driver
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	d.ID = snap.Ref.ID
	switch v := d.UnitRaw.(type) {
	case string:
		d.Unit = v
	case int64:
		d.Unit = strconv.FormatInt(v, 10)
	case float64:
		d.Unit = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return &d, nil
}
