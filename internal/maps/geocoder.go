package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"centraltaxi/internal/types"
)

var ErrNoResult = errors.New("address not found")

type geocodingClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder turns an operator-typed address into "lat,lng".
type Geocoder struct {
	client geocodingClient
	region string
}

// NewGeocoder creates a Geocoder with the given API Key. region biases results (e.g. "ec").
func NewGeocoder(apiKey, region string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (types.Coords, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   g.region,
		Language: "es",
	})
	if err != nil {
		return "", fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return "", ErrNoResult
	}
	loc := results[0].Geometry.Location
	return types.FormatCoords(types.Point{Lat: loc.Lat, Lng: loc.Lng}), nil
}
