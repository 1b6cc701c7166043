package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/observability"
	"github.com/triplink/triplink-backend/pkg/assistant"
	"github.com/triplink/triplink-backend/pkg/geo"
)

// CityDirectory lists the cities of a country
type CityDirectory interface {
	Cities(ctx context.Context, country string) ([]string, error)
}

// Geocoder resolves a city name to coordinates
type Geocoder interface {
	Lookup(ctx context.Context, city, country string) (geo.Point, error)
}

// CoordinateStore is a cache of resolved coordinates shared between instances
type CoordinateStore interface {
	Get(ctx context.Context, member string) (geo.Point, bool, error)
	Put(ctx context.Context, member string, p geo.Point) error
}

// LocationConfig holds the LocationService settings
type LocationConfig struct {
	DefaultCountry  string
	Countries       []string // city lists are served for these only; DefaultCountry is always included
	ReadyWait       time.Duration // longest GetAll waits for a prefetch
	PrefetchTimeout time.Duration
	Fallback        geo.Point
}

type cityList struct {
	ready  chan struct{} // closed when the fetch finished
	cities []string
	err    error
}

// failed reports whether the fetch finished with an error
func (l *cityList) failed() bool {
	select {
	case <-l.ready:
		return l.err != nil
	default:
		return false
	}
}

type locationKey struct {
	city    string
	country string
}

// LocationService caches city lists per country and city coordinates.
//
// City lists are fetched in the background for the configured countries and
// kept once fetched; a failed fetch is retried by the next reader. Coordinates
// are cached after the first successful lookup and never expire; failed
// lookups answer with the fallback centroid, which is not cached.
type LocationService struct {
	directory CityDirectory
	geocoder  Geocoder
	shared    CoordinateStore
	cfg       LocationConfig
	logger    *logrus.Logger

	countries map[string]bool

	listsMu sync.Mutex
	lists   map[string]*cityList

	mu        sync.RWMutex
	locations map[locationKey]geo.Point
}

// NewLocationService creates a LocationService. shared may be nil.
func NewLocationService(directory CityDirectory, geocoder Geocoder, shared CoordinateStore, cfg LocationConfig, logger *logrus.Logger) *LocationService {
	countries := map[string]bool{}
	for _, c := range append([]string{cfg.DefaultCountry}, cfg.Countries...) {
		if c = normalise(c); c != "" {
			countries[c] = true
		}
	}
	return &LocationService{
		directory: directory,
		geocoder:  geocoder,
		shared:    shared,
		cfg:       cfg,
		logger:    logger,
		countries: countries,
		lists:     map[string]*cityList{},
		locations: map[locationKey]geo.Point{},
	}
}

// Prefetch starts fetching the city list of country unless it is loaded or
// loading. Unsupported countries are ignored.
func (s *LocationService) Prefetch(country string) {
	if c := s.country(country); s.countries[c] {
		s.list(c)
	}
}

// GetAll returns the city list of country, waiting for its prefetch
func (s *LocationService) GetAll(ctx context.Context, country string) ([]string, error) {
	c := s.country(country)
	if !s.countries[c] {
		return nil, models.NewNotFound("Country is not supported")
	}
	list := s.list(c)

	timer := time.NewTimer(s.cfg.ReadyWait)
	defer timer.Stop()

	select {
	case <-list.ready:
	case <-ctx.Done():
		return nil, models.NewUnavailable("City list is not ready", ctx.Err())
	case <-timer.C:
		return nil, models.NewUnavailable("City list is not ready", nil)
	}

	if list.err != nil {
		return nil, models.NewUnavailable("City directory unavailable", list.err)
	}
	return append([]string(nil), list.cities...), nil
}

// CitySource exposes the default country's city list to the gazetteer
func (s *LocationService) CitySource(country string) assistant.CitySource {
	return func(ctx context.Context) ([]string, error) {
		return s.GetAll(ctx, country)
	}
}

// GetLocation returns the coordinates of city. Lookup failures are logged
// and answered with the fallback centroid.
func (s *LocationService) GetLocation(ctx context.Context, city, country string) geo.Point {
	key := locationKey{city: normalise(city), country: s.country(country)}

	s.mu.RLock()
	p, ok := s.locations[key]
	s.mu.RUnlock()
	if ok {
		observability.LocationLookups.WithLabelValues("memory").Inc()
		return p
	}

	entry := s.logger.WithFields(logrus.Fields{"city": key.city, "country": key.country})
	member := key.city + "|" + key.country

	if s.shared != nil {
		p, found, err := s.shared.Get(ctx, member)
		if err != nil {
			entry.WithError(err).Warn("Shared coordinate lookup failed")
		} else if found {
			observability.LocationLookups.WithLabelValues("redis").Inc()
			s.remember(key, p)
			return p
		}
	}

	p, err := s.geocoder.Lookup(ctx, strings.TrimSpace(city), key.country)
	if err != nil {
		observability.LocationLookups.WithLabelValues("fallback").Inc()
		entry.WithError(err).Warn("Geocoding failed, using fallback coordinates")
		return s.cfg.Fallback
	}

	observability.LocationLookups.WithLabelValues("geocoder").Inc()
	s.remember(key, p)
	if s.shared != nil {
		if err := s.shared.Put(ctx, member, p); err != nil {
			entry.WithError(err).Warn("Failed to share coordinates")
		}
	}
	return p
}

// Distance returns the great-circle distance between a and b in kilometres
func (s *LocationService) Distance(a, b geo.Point) float64 {
	return geo.Distance(a, b)
}

func (s *LocationService) remember(key locationKey, p geo.Point) {
	s.mu.Lock()
	s.locations[key] = p
	s.mu.Unlock()
}

func (s *LocationService) list(country string) *cityList {
	s.listsMu.Lock()
	defer s.listsMu.Unlock()

	if list, ok := s.lists[country]; ok && !list.failed() {
		return list
	}
	list := &cityList{ready: make(chan struct{})}
	s.lists[country] = list
	go s.fetch(country, list)
	return list
}

func (s *LocationService) fetch(country string, list *cityList) {
	defer close(list.ready)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PrefetchTimeout)
	defer cancel()

	list.cities, list.err = s.directory.Cities(ctx, country)
	if list.err != nil {
		observability.CityPrefetches.WithLabelValues(observability.OutcomeError).Inc()
		s.logger.WithError(list.err).WithField("country", country).Error("City prefetch failed")
		return
	}
	observability.CityPrefetches.WithLabelValues(observability.OutcomeOK).Inc()
	s.logger.WithFields(logrus.Fields{"country": country, "cities": len(list.cities)}).Info("City list loaded")
}

func (s *LocationService) country(country string) string {
	if c := normalise(country); c != "" {
		return c
	}
	return normalise(s.cfg.DefaultCountry)
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
