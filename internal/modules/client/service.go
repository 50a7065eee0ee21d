// README: Client resolver and address merger used by order registration and reservation promotion.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/types"
)

// Repository is the slice of the document store the resolver needs.
type Repository interface {
	GetByID(ctx context.Context, coll Collection, id string) (*Client, error)
	FindByPhone(ctx context.Context, coll Collection, phone string) (*Client, error)
	FindByShortID(ctx context.Context, coll Collection, id int64) (*Client, error)
	Create(ctx context.Context, c *Client) error
	SaveAddresses(ctx context.Context, coll Collection, docID string, list []Address) error
}

type MatchKind string

const (
	MatchByField MatchKind = "campo"
	MatchByID    MatchKind = "id"
)

// Resolution is what the console pre-populates after a phone lookup.
type Resolution struct {
	Found     bool
	Client    *Client
	Type      Collection
	MatchedBy MatchKind
	Phone     Phone
	// DisplayPhone is what the order shows: the operator's own digits when the record
	// was found by id, the stored number when it was found by the phone field.
	DisplayPhone string
	Address      *Address
}

type Service struct {
	repo        Repository
	countryCode string
	now         types.Clock
	log         logger.ILogger
}

func NewService(repo Repository, countryCode string, log logger.ILogger) *Service {
	return &Service{repo: repo, countryCode: countryCode, now: time.Now, log: log}
}

// WithClock overrides the timestamp source.
func (s *Service) WithClock(c types.Clock) *Service {
	s.now = c
	return s
}

func (s *Service) ParsePhone(raw string) (Phone, error) {
	return ParsePhone(raw, s.countryCode)
}

// Resolve looks a client up by a raw phone-like string. A miss is not an error.
func (s *Service) Resolve(ctx context.Context, raw string) (Resolution, error) {
	p, err := s.ParsePhone(raw)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Phone: p, DisplayPhone: p.Digits}

	var (
		c    *Client
		kind MatchKind
	)
	switch p.Format {
	case FormatFixedLine:
		c, err = s.repo.GetByID(ctx, CollectionFixed, p.Digits)
		kind = MatchByID
	case FormatShortID:
		var id int64
		if _, scanErr := fmt.Sscan(p.Digits, &id); scanErr != nil {
			return Resolution{}, fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
		c, err = s.repo.FindByShortID(ctx, CollectionGeneral, id)
		kind = MatchByID
	case FormatMobile:
		c, kind, err = s.resolveMobile(ctx, p)
	}
	if errors.Is(err, ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve client %s: %w", p.Digits, err)
	}

	res.Found = true
	res.Client = c
	res.Type = c.Collection
	res.MatchedBy = kind
	if kind == MatchByField && c.Phone != "" {
		res.DisplayPhone = c.Phone
	}
	if a, ok := c.ActiveAddress(); ok {
		res.Address = &a
	}
	return res, nil
}

// resolveMobile tries the mobile collection first, then the general one, each with
// phone field -> full-number id -> last-nine-digits id.
func (s *Service) resolveMobile(ctx context.Context, p Phone) (*Client, MatchKind, error) {
	for _, coll := range []Collection{CollectionMobile, CollectionGeneral} {
		c, err := s.repo.FindByPhone(ctx, coll, p.Full)
		if err == nil {
			return c, MatchByField, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
		for _, id := range []string{p.Full, p.LegacyID()} {
			c, err = s.repo.GetByID(ctx, coll, id)
			if err == nil {
				return c, MatchByID, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, "", err
			}
		}
	}
	return nil, "", ErrNotFound
}

// Create stores a client that the resolver did not find. Fixed lines are keyed by their
// seven digits, mobiles by the full number. Short ids are assigned elsewhere.
func (s *Service) Create(ctx context.Context, p Phone, name, sector string) (*Client, error) {
	c := &Client{
		Name:      strings.TrimSpace(name),
		Sector:    strings.TrimSpace(sector),
		CreatedAt: s.now(),
	}
	switch p.Format {
	case FormatFixedLine:
		c.Collection, c.DocID, c.Phone = CollectionFixed, p.Digits, p.Digits
	case FormatMobile:
		c.Collection, c.DocID, c.Phone, c.CountryCode = CollectionMobile, p.Full, p.Full, s.countryCode
	default:
		return nil, fmt.Errorf("%w: cannot create a client from a short id", ErrBadRequest)
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client %s: %w", c.DocID, err)
	}
	return c, nil
}

// MergeAddress folds the address into the client's history and writes back only on change.
func (s *Service) MergeAddress(ctx context.Context, c *Client, text string, coords types.Coords, mode Mode) (bool, error) {
	if c == nil {
		return false, ErrNotFound
	}
	merged, outcome := MergeAddresses(c.Addresses, text, coords, mode, s.now())
	if outcome == MergeUnchanged {
		return false, nil
	}
	if err := s.repo.SaveAddresses(ctx, c.Collection, c.DocID, merged); err != nil {
		return false, fmt.Errorf("save addresses of %s: %w", c.DocID, err)
	}
	c.Addresses = merged
	s.log.Debug("client address merged",
		logger.String("client", c.DocID), logger.String("outcome", string(outcome)))
	return true, nil
}
