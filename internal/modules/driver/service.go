// README: Driver service: unit lookup for assignment, registry edits, photos, and audited status changes.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

type Registry interface {
	ByUnit(ctx context.Context, unit string) (*Driver, error)
	Get(ctx context.Context, id string) (*Driver, error)
	Save(ctx context.Context, d *Driver) error
	SetStatus(ctx context.Context, id string, active bool, at time.Time) error
	SetPhoto(ctx context.Context, id, url, path string, at time.Time) error
}

type Photos interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

type Auditor interface {
	Append(ctx context.Context, e AuditEntry) error
	ListByUnit(ctx context.Context, unit string, limit int) ([]AuditEntry, error)
}

// Broadcaster delivers a message without blocking the caller.
type Broadcaster interface {
	Notify(ctx context.Context, phone, message string)
}

type Service struct {
	registry    Registry
	photos      Photos
	audit       Auditor
	broadcast   Broadcaster
	minTokenLen int
	now         types.Clock
	log         logger.ILogger
}

func NewService(registry Registry, photos Photos, audit Auditor, broadcast Broadcaster, minTokenLen int, log logger.ILogger) *Service {
	return &Service{
		registry:    registry,
		photos:      photos,
		audit:       audit,
		broadcast:   broadcast,
		minTokenLen: minTokenLen,
		now:         time.Now,
		log:         log,
	}
}

func (s *Service) WithClock(c types.Clock) *Service {
	s.now = c
	return s
}

func (s *Service) MinTokenLen() int {
	return s.minTokenLen
}

func (s *Service) ByUnit(ctx context.Context, unit string) (*Driver, error) {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrBadRequest)
	}
	return s.registry.ByUnit(ctx, unit)
}

// RequireActive returns the unit's driver only when it exists and its estatus is on.
func (s *Service) RequireActive(ctx context.Context, unit string) (*Driver, error) {
	d, err := s.ByUnit(ctx, unit)
	if err != nil {
		return nil, err
	}
	if !d.Active() {
		return nil, &InactiveUnitError{Unit: d.Unit}
	}
	return d, nil
}

type SaveCommand struct {
	Unit        string
	Name        string
	Plate       string
	Color       string
	Phone       string
	PhotoURL    string
	Token       string
	FCMToken    string
	DeviceToken string
	// Active is applied through SetStatus so the change is audited; nil keeps estatus.
	Active *bool
}

// Save creates or replaces the profile of a unit. New units start inactive.
func (s *Service) Save(ctx context.Context, sess session.Session, cmd SaveCommand) (*Driver, error) {
	cmd.Unit = strings.TrimSpace(cmd.Unit)
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Unit == "" || cmd.Name == "" {
		return nil, fmt.Errorf("%w: unit and name are required", ErrBadRequest)
	}
	if cmd.PhotoURL != "" {
		kind, err := ClassifyPhotoURL(cmd.PhotoURL)
		if err != nil {
			return nil, err
		}
		if kind == PhotoPreview {
			return nil, ErrPhotoNotUploaded
		}
	}

	d, err := s.registry.ByUnit(ctx, cmd.Unit)
	switch {
	case errors.Is(err, ErrUnitNotFound):
		d = &Driver{ID: string(types.NewID()), Estatus: false}
	case err != nil:
		return nil, err
	}
	d.Unit = cmd.Unit
	d.Name = cmd.Name
	d.Plate = strings.ToUpper(strings.TrimSpace(cmd.Plate))
	d.Color = strings.TrimSpace(cmd.Color)
	d.Phone = strings.TrimSpace(cmd.Phone)
	if cmd.PhotoURL != "" {
		d.PhotoURL = cmd.PhotoURL
	}
	if cmd.Token != "" {
		d.Token = cmd.Token
	}
	if cmd.FCMToken != "" {
		d.FCMToken = cmd.FCMToken
	}
	if cmd.DeviceToken != "" {
		d.DeviceToken = cmd.DeviceToken
	}
	d.UpdatedAt = s.now()

	if err := s.registry.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save unit %s: %w", d.Unit, err)
	}
	if cmd.Active != nil && *cmd.Active != d.Active() {
		return s.SetStatus(ctx, sess, StatusCommand{Unit: d.Unit, Active: *cmd.Active, Reason: "edicion de ficha"})
	}
	return d, nil
}

type StatusCommand struct {
	Unit   string
	Active bool
	Reason string
}

// SetStatus flips estatus, writes an audit row and tells the driver. Audit and broadcast
// failures are logged; the status change itself stands.
func (s *Service) SetStatus(ctx context.Context, sess session.Session, cmd StatusCommand) (*Driver, error) {
	d, err := s.ByUnit(ctx, cmd.Unit)
	if err != nil {
		return nil, err
	}
	previous := d.Active()
	now := s.now()
	if err := s.registry.SetStatus(ctx, d.ID, cmd.Active, now); err != nil {
		return nil, fmt.Errorf("set status of unit %s: %w", d.Unit, err)
	}
	d.Estatus = cmd.Active
	d.UpdatedAt = now

	if s.audit != nil {
		err := s.audit.Append(ctx, AuditEntry{
			DriverID:  d.ID,
			Unit:      d.Unit,
			Active:    cmd.Active,
			Previous:  previous,
			Reason:    strings.TrimSpace(cmd.Reason),
			Operator:  sess.Operator,
			CreatedAt: now,
		})
		if err != nil {
			s.log.Error("driver status audit failed", logger.String("unit", d.Unit), logger.Error(err))
		}
	}
	if s.broadcast != nil && previous != cmd.Active {
		s.broadcast.Notify(ctx, d.Phone, statusMessage(d, cmd.Active, cmd.Reason))
	}
	s.log.Info("driver status changed",
		logger.String("unit", d.Unit), logger.Bool("active", cmd.Active), logger.String("operator", sess.Operator))
	return d, nil
}

func statusMessage(d *Driver, active bool, reason string) string {
	state := "desactivada"
	if active {
		state = "activada"
	}
	msg := fmt.Sprintf("Unidad %s %s.", d.Unit, state)
	if r := strings.TrimSpace(reason); r != "" {
		msg += " Motivo: " + r
	}
	return msg
}

// UploadPhoto replaces the unit's photo; the previous object is removed after the new one is saved.
func (s *Service) UploadPhoto(ctx context.Context, unit, contentType string, r io.Reader) (*Driver, error) {
	ext, ok := imageExt[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	d, err := s.ByUnit(ctx, unit)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s/%s/%s.%s", collection, d.ID, types.NewID(), ext)
	url, err := s.photos.Upload(ctx, path, contentType, r)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.registry.SetPhoto(ctx, d.ID, url, path, now); err != nil {
		_ = s.photos.Delete(ctx, path)
		return nil, fmt.Errorf("save photo of unit %s: %w", d.Unit, err)
	}
	if old := d.PhotoPath; old != "" && old != path {
		if err := s.photos.Delete(ctx, old); err != nil {
			s.log.Warning("old driver photo not deleted", logger.String("path", old), logger.Error(err))
		}
	}
	d.PhotoURL, d.PhotoPath, d.UpdatedAt = url, path, now
	return d, nil
}

func (s *Service) DeletePhoto(ctx context.Context, unit string) error {
	d, err := s.ByUnit(ctx, unit)
	if err != nil {
		return err
	}
	if d.PhotoPath != "" {
		if err := s.photos.Delete(ctx, d.PhotoPath); err != nil {
			return fmt.Errorf("delete photo of unit %s: %w", d.Unit, err)
		}
	}
	return s.registry.SetPhoto(ctx, d.ID, "", "", s.now())
}

// History returns the newest status changes of a unit first.
func (s *Service) History(ctx context.Context, unit string, limit int) ([]AuditEntry, error) {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrBadRequest)
	}
	return s.audit.ListByUnit(ctx, unit, limit)
}
