package timesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/qrinout/server/internal/monitoring"
)

// Result is the outcome of a time lookup. Trusted is false when no external
// authority answered and the local clock was used instead; callers must
// treat that as degraded-but-usable, not as an error.
type Result struct {
	Time    time.Time
	Trusted bool
}

// Provider fetches the current time for an IANA timezone from one external
// authority.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client, timezone string) (time.Time, error)
}

// Service resolves current time for a timezone through a provider chain,
// falling back to the local system clock. Lookups never block for long and
// never fail hard: the worst case is an untrusted local-clock result.
type Service struct {
	client    *http.Client
	providers []Provider
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

const lookupTimeout = 5 * time.Second

func NewService(providers []Provider, logger *zap.Logger) *Service {
	return &Service{
		client:    &http.Client{Timeout: lookupTimeout},
		providers: providers,
		logger:    logger,
	}
}

// SetMetrics attaches lookup counters. Safe to skip; lookups are then
// unobserved.
func (s *Service) SetMetrics(m *monitoring.Metrics) { s.metrics = m }

// DefaultProviders is the production chain: World Time API first, then
// TimeAPI.io.
func DefaultProviders() []Provider {
	return []Provider{
		&WorldTimeAPI{BaseURL: "http://worldtimeapi.org"},
		&TimeAPIIO{BaseURL: "https://timeapi.io"},
	}
}

// Now returns the current time in the given timezone and whether it came
// from an external authority. An unknown timezone degrades to UTC.
func (s *Service) Now(ctx context.Context, timezone string) Result {
	for _, p := range s.providers {
		t, err := p.Fetch(ctx, s.client, timezone)
		if err != nil {
			s.metrics.TimeFetch(p.Name(), "error")
			s.logger.Debug("time provider failed",
				zap.String("provider", p.Name()),
				zap.String("timezone", timezone),
				zap.Error(err))
			continue
		}
		s.metrics.TimeFetch(p.Name(), "ok")
		return Result{Time: t, Trusted: true}
	}
	s.metrics.TimeFetch("local_clock", "fallback")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", timezone))
		loc = time.UTC
	}
	return Result{Time: time.Now().In(loc), Trusted: false}
}

// WorldTimeAPI queries worldtimeapi.org, which returns an offset-aware
// RFC3339 datetime.
type WorldTimeAPI struct {
	BaseURL string
}

func (p *WorldTimeAPI) Name() string { return "worldtimeapi" }

func (p *WorldTimeAPI) Fetch(ctx context.Context, client *http.Client, timezone string) (time.Time, error) {
	u := fmt.Sprintf("%s/api/timezone/%s", p.BaseURL, timezone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("worldtimeapi status %d", resp.StatusCode)
	}

	var body struct {
		Datetime string `json:"datetime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode worldtimeapi response: %w", err)
	}
	if body.Datetime == "" {
		return time.Time{}, fmt.Errorf("worldtimeapi response missing datetime")
	}

	t, err := time.Parse(time.RFC3339Nano, body.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse worldtimeapi datetime %q: %w", body.Datetime, err)
	}
	return t, nil
}

// TimeAPIIO queries timeapi.io, whose dateTime field has no offset and is
// local to the requested zone.
type TimeAPIIO struct {
	BaseURL string
}

func (p *TimeAPIIO) Name() string { return "timeapi.io" }

func (p *TimeAPIIO) Fetch(ctx context.Context, client *http.Client, timezone string) (time.Time, error) {
	u := fmt.Sprintf("%s/api/Time/current/zone?timeZone=%s", p.BaseURL, url.QueryEscape(timezone))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("timeapi.io status %d", resp.StatusCode)
	}

	var body struct {
		DateTime string `json:"dateTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode timeapi.io response: %w", err)
	}
	if body.DateTime == "" {
		return time.Time{}, fmt.Errorf("timeapi.io response missing dateTime")
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	// Fractional seconds vary in width; trim to whole seconds first.
	t, err := time.ParseInLocation("2006-01-02T15:04:05", body.DateTime[:min(len(body.DateTime), 19)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timeapi.io dateTime %q: %w", body.DateTime, err)
	}
	return t, nil
}
