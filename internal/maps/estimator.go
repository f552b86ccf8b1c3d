// README: Route estimation. Google Directions when an API key is configured,
// great-circle fallback otherwise, with a Redis cache in front so repeated
// quotes for the same pair never re-hit the API.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/logger"
	gmaps "googlemaps.github.io/maps"

	"raahi/internal/types"
)

var ErrNoRoute = errors.New("no drivable route between points")

// Estimate is one routed distance/duration answer, cache-serializable.
type Estimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// GoogleEstimator asks the Directions API for drivable routes.
type GoogleEstimator struct {
	client *gmaps.Client
}

func NewGoogleEstimator(apiKey string) (*GoogleEstimator, error) {
	client, err := gmaps.NewClient(gmaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &GoogleEstimator{client: client}, nil
}

func (g *GoogleEstimator) Estimate(ctx context.Context, origin, dest types.Point) (float64, float64, error) {
	r := &gmaps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", dest.Lat, dest.Lng),
		Mode:        gmaps.TravelModeDriving,
		Region:      "IN",
	}
	routes, _, err := g.client.Directions(ctx, r)
	if err != nil {
		return 0, 0, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, 0, ErrNoRoute
	}

	var meters int
	var dur time.Duration
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		dur += leg.Duration
	}
	return float64(meters) / 1000.0, dur.Minutes(), nil
}

// HaversineEstimator is the offline fallback: great-circle distance scaled by
// a road-winding factor, duration from an assumed average speed.
type HaversineEstimator struct{}

const (
	roadFactor = 1.3
	avgSpeedKm = 35.0
)

func (HaversineEstimator) Estimate(_ context.Context, origin, dest types.Point) (float64, float64, error) {
	km := haversineKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng) * roadFactor
	return km, km / avgSpeedKm * 60.0, nil
}

// Router is any source of drivable distance and duration.
type Router interface {
	Estimate(ctx context.Context, origin, dest types.Point) (distanceKm float64, durationMin float64, err error)
}

// CachedEstimator fronts any Router with a Redis TTL cache. Cache failures
// degrade to the inner estimator, never to an error.
type CachedEstimator struct {
	inner Router
	rdb   *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedEstimator(inner Router, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedEstimator {
	return &CachedEstimator{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedEstimator) Estimate(ctx context.Context, origin, dest types.Point) (float64, float64, error) {
	key := cacheKey(origin, dest)

	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
			var e Estimate
			if json.Unmarshal([]byte(raw), &e) == nil {
				return e.DistanceKm, e.DurationMin, nil
			}
		}
	}

	dist, dur, err := c.inner.Estimate(ctx, origin, dest)
	if err != nil {
		return 0, 0, err
	}

	if c.rdb != nil {
		raw, _ := json.Marshal(Estimate{DistanceKm: dist, DurationMin: dur})
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("route cache write failed", logger.String("error", err.Error()))
		}
	}
	return dist, dur, nil
}

// cacheKey rounds coordinates to ~11m so near-identical pins share an entry.
func cacheKey(origin, dest types.Point) string {
	return fmt.Sprintf("route:%.4f,%.4f:%.4f,%.4f", origin.Lat, origin.Lng, dest.Lat, dest.Lng)
}
