// README: Coordinates travel as "lat,lng" strings between the console, the store and the geocoder.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidCoords = errors.New("invalid coordinates")

type Point struct {
	Lat float64
	Lng float64
}

// Coords is the persisted "lat,lng" form. The empty value means "no coordinates".
type Coords string

func FormatCoords(p Point) Coords {
	return Coords(strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64))
}

// Normalize trims whitespace around both components; it does not round.
func (c Coords) Normalize() Coords {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coords(s)
	}
	return Coords(strings.TrimSpace(parts[0]) + "," + strings.TrimSpace(parts[1]))
}

func (c Coords) IsEmpty() bool {
	return strings.TrimSpace(string(c)) == ""
}

func (c Coords) Point() (Point, error) {
	parts := strings.Split(string(c.Normalize()), ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidCoords, string(c))
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidCoords, string(c))
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidCoords, string(c))
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: out of range %q", ErrInvalidCoords, string(c))
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// Validate accepts the empty value.
func (c Coords) Validate() error {
	if c.IsEmpty() {
		return nil
	}
	_, err := c.Point()
	return err
}
