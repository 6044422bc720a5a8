// Package backfill queries the station's REST history endpoint for
// time-windowed batches of per-minute (or per-day) observations. The rolling
// statistics engine uses these batches to seed accumulators on cold start and
// to resolve trend lookbacks.
package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tempestwx/stationcore/internal/device"
)

// WindowKind selects the time window of a history query.
type WindowKind int

const (
	Last6h WindowKind = iota
	Last24h
	Today
	Yesterday
	Month
	Year
)

func (k WindowKind) String() string {
	switch k {
	case Last6h:
		return "last_6h"
	case Last24h:
		return "last_24h"
	case Today:
		return "today"
	case Yesterday:
		return "yesterday"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return "unknown"
}

var (
	// ErrUnavailable marks a history query that failed, timed out, or
	// returned a non-success status.
	ErrUnavailable = errors.New("backfill unavailable")

	// ErrMalformed marks a response that arrived but could not be decoded.
	ErrMalformed = errors.New("backfill response malformed")
)

// Record is one raw per-minute (bucket "a") or per-day (bucket "e")
// observation row. Position 0 of the wire array is the epoch; the remaining
// positions are optional numeric fields addressed by index.
type Record struct {
	Epoch  int64
	Fields []device.Value
}

// Field returns the optional value at a raw index. The epoch at position 0 is
// not addressable through Field.
func (r Record) Field(i int) device.Value {
	i--
	if i < 0 || i >= len(r.Fields) {
		return device.None()
	}
	return r.Fields[i]
}

// Batch is the ordered result of one history query.
type Batch struct {
	Window  WindowKind
	Records []Record
}

// Client issues windowed history queries against the station REST endpoint.
// Calendar windows (today, yesterday, month, year) are resolved in the
// station's local timezone.
type Client struct {
	baseURL string
	token   string
	tz      *time.Location
	client  *http.Client
	retry   retryPolicy
	circuit *gobreaker.CircuitBreaker

	// now is overridable in tests.
	now func() time.Time
}

// NewClient creates a backfill client. baseURL is the REST root, e.g.
// "https://swd.weatherflow.com/swd/rest".
func NewClient(client *http.Client, baseURL, token string, tz *time.Location) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backfill",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		tz:      tz,
		client:  client,
		retry: retryPolicy{
			maxRetries: 2,
			initial:    500 * time.Millisecond,
			max:        5 * time.Second,
		},
		circuit: cb,
		now:     time.Now,
	}
}

// Window fetches the raw observation rows for a device over the requested
// window. end anchors the relative windows (last 6/24 hours) and is normally
// the epoch of the latest live observation.
func (c *Client) Window(ctx context.Context, deviceID string, kind WindowKind, end time.Time) (Batch, error) {
	start, stop, bucket := c.windowBounds(kind, end)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("bucket", bucket)
		values.Set("time_start", fmt.Sprintf("%d", start))
		values.Set("time_end", fmt.Sprintf("%d", stop))
		values.Set("token", c.token)

		u := fmt.Sprintf("%s/observations/device/%s?%s", c.baseURL, deviceID, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := fetch(ctx, c.client, c.circuit, c.retry, buildRequest)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %s window for device %s: %v", ErrUnavailable, kind, deviceID, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status struct {
			StatusMessage string `json:"status_message"`
		} `json:"status"`
		Obs [][]any `json:"obs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !strings.Contains(payload.Status.StatusMessage, "SUCCESS") {
		return Batch{}, fmt.Errorf("%w: status %q", ErrUnavailable, payload.Status.StatusMessage)
	}
	if payload.Obs == nil {
		return Batch{}, fmt.Errorf("%w: missing obs", ErrMalformed)
	}

	batch := Batch{Window: kind, Records: make([]Record, 0, len(payload.Obs))}
	for _, row := range payload.Obs {
		if len(row) == 0 {
			continue
		}
		epoch, ok := row[0].(float64)
		if !ok {
			continue
		}
		rec := Record{Epoch: int64(epoch), Fields: make([]device.Value, len(row)-1)}
		for i, v := range row[1:] {
			if f, ok := v.(float64); ok {
				rec.Fields[i] = device.Some(f)
			}
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// windowBounds resolves a window kind into start/stop epochs and the history
// bucket. Minute-resolution windows use bucket "a"; the long month and year
// windows use the daily bucket "e" and stop at the previous local midnight,
// because the live accumulators already carry today.
func (c *Client) windowBounds(kind WindowKind, end time.Time) (int64, int64, string) {
	now := c.now().In(c.tz)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.tz)

	switch kind {
	case Last6h:
		return end.Unix() - 6*3600, end.Unix(), "a"
	case Last24h:
		return end.Unix() - 24*3600, end.Unix(), "a"
	case Today:
		return midnight.Unix(), now.Unix(), "a"
	case Yesterday:
		return midnight.AddDate(0, 0, -1).Unix(), midnight.Unix() - 1, "a"
	case Month:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.tz)
		if now.Day() == 1 {
			return monthStart.Unix(), monthStart.Unix() + 1, "e"
		}
		return monthStart.Unix(), midnight.Unix() - 1, "e"
	case Year:
		yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, c.tz)
		if now.YearDay() == 1 {
			return yearStart.Unix(), yearStart.Unix() + 1, "e"
		}
		return yearStart.Unix(), midnight.Unix() - 1, "e"
	}
	return 0, 0, "a"
}
