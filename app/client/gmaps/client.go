package gmaps

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"hangoutd/app/config"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
	"googlemaps.github.io/maps"
)

const maxVenues = 10

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Venue struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Rating     float32  `json:"rating"`
	PriceLevel int      `json:"price_level"`
	Types      []string `json:"types"`
	PlaceID    string   `json:"place_id"`
}

// Client wraps the Google Maps API. Every operation is total: when the
// service is unconfigured or a call fails, Normalize passes the input
// through and lookups return empty results. Failures are logged here
// and never surfaced to callers.
type Client struct {
	api *maps.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Maps.APIKey == "" {
		slog.Warn("Google Maps API key not found, maps features will be limited")
		return &Client{}, nil
	}

	api, err := maps.NewClient(maps.WithAPIKey(cfg.Maps.APIKey))
	if err != nil {
		slog.Error("Failed to initialize Google Maps client", "error", err)
		return &Client{}, nil
	}

	slog.Info("Google Maps client initialized")

	return &Client{api: api}, nil
}

func (c *Client) Available() bool {
	return c.api != nil
}

// Normalize geocodes an address to its formatted form, prefixing the
// neighborhood when the geocoder reports one the formatted address
// lacks. The original string comes back unchanged on any failure.
func (c *Client) Normalize(ctx context.Context, address string) string {
	if c.api == nil || address == "" {
		return address
	}

	results, err := c.api.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		slog.Error("Geocoding failed", "address", address, "error", err)
		return address
	}

	if len(results) == 0 {
		return address
	}

	formatted := results[0].FormattedAddress
	if formatted == "" {
		return address
	}

	for _, component := range results[0].AddressComponents {
		for _, t := range component.Types {
			if t != "neighborhood" && t != "sublocality" {
				continue
			}

			if component.LongName != "" && !strings.Contains(formatted, component.LongName) {
				return component.LongName + ", " + formatted
			}

			return formatted
		}
	}

	return formatted
}

// GeographicCenter geocodes every address concurrently and averages
// the coordinates. Addresses that fail to geocode are skipped, false
// means nothing could be located.
func (c *Client) GeographicCenter(ctx context.Context, addresses []string) (Coordinate, bool) {
	if c.api == nil || len(addresses) == 0 {
		return Coordinate{}, false
	}

	var (
		mu     sync.Mutex
		coords []Coordinate
	)

	g, ctx := errgroup.WithContext(ctx)

	for _, address := range addresses {
		g.Go(func() error {
			results, err := c.api.Geocode(ctx, &maps.GeocodingRequest{Address: address})
			if err != nil {
				slog.Error("Failed to geocode address", "address", address, "error", err)
				return nil
			}

			if len(results) == 0 {
				return nil
			}

			location := results[0].Geometry.Location

			mu.Lock()
			coords = append(coords, Coordinate{Lat: location.Lat, Lng: location.Lng})
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	if len(coords) == 0 {
		return Coordinate{}, false
	}

	var center Coordinate
	for _, coord := range coords {
		center.Lat += coord.Lat
		center.Lng += coord.Lng
	}
	center.Lat /= float64(len(coords))
	center.Lng /= float64(len(coords))

	return center, true
}

// Nearby returns up to maxVenues venues of the given category around
// the center. Empty on any failure or when unconfigured.
func (c *Client) Nearby(ctx context.Context, center Coordinate, category string, radius uint) []Venue {
	if c.api == nil {
		return nil
	}

	response, err := c.api.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lng},
		Radius:   radius,
		Type:     maps.PlaceType(category),
		Language: "en",
	})
	if err != nil {
		slog.Error("Venue search failed", "error", err)
		return nil
	}

	results := response.Results
	if len(results) > maxVenues {
		results = results[:maxVenues]
	}

	venues := make([]Venue, 0, len(results))
	for _, place := range results {
		venues = append(venues, Venue{
			Name:       place.Name,
			Address:    place.Vicinity,
			Rating:     place.Rating,
			PriceLevel: place.PriceLevel,
			Types:      place.Types,
			PlaceID:    place.PlaceID,
		})
	}

	return venues
}
