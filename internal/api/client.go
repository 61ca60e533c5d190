// Package api is the HTTP client for the ByronHub backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"byronhub/internal/metrics"
	"byronhub/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	cachePrefix    = "byronhub:api:"
	maxErrorBody   = 4 << 10
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client calls the reservation backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger

	mu    sync.RWMutex
	token string

	limiter *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "api").Logger()
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     &l,
	}
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// UseRateLimit throttles outgoing requests to perSecond with the given burst.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// UseRedisCache configures optional Redis caching for space and building reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ReservationFilter selects reservations. Empty fields are not sent.
type ReservationFilter struct {
	SpaceID  model.ID
	PersonID model.ID
}

// CreateReservationRequest is the body of POST /reservations.
type CreateReservationRequest struct {
	SpaceID      model.ID `json:"spaceId"`
	Usage        string   `json:"usage"`
	StartTime    string   `json:"startTime"` // YYYY-MM-DDTHH:MM:00, no zone
	Duration     int      `json:"duration"`
	MaxAttendees int      `json:"maxAttendees"`
	PersonID     model.ID `json:"personId"`
	Description  string   `json:"description"`
}

// ListReservations returns reservations matching f.
func (c *Client) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	q := url.Values{}
	if f.SpaceID != "" {
		q.Set("spaceId", f.SpaceID.String())
	}
	if f.PersonID != "" {
		q.Set("personId", f.PersonID.String())
	}
	var out []model.Reservation
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/reservations", q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReservationsForSpace returns the reservations of one space, or of every
// space when spaceID is empty.
func (c *Client) ReservationsForSpace(ctx context.Context, spaceID model.ID) ([]model.Reservation, error) {
	return c.ListReservations(ctx, ReservationFilter{SpaceID: spaceID})
}

// CreateReservation posts one reservation. The returned record is nil when
// the backend does not echo it back.
func (c *Client) CreateReservation(ctx context.Context, req CreateReservationRequest) (*model.Reservation, error) {
	data, err := c.send(ctx, http.MethodPost, "/reservations", req)
	if err != nil {
		return nil, err
	}
	var created model.Reservation
	if json.Unmarshal(data, &created) != nil || created.ID == 0 {
		return nil, nil
	}
	return &created, nil
}

// DeleteReservation removes a reservation.
func (c *Client) DeleteReservation(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/reservations/"+strconv.FormatInt(id, 10), nil, nil)
}

// UpdateReservationState moves a reservation to state (manager only).
func (c *Client) UpdateReservationState(ctx context.Context, id int64, state string) error {
	body := map[string]string{"state": state}
	return c.doJSON(ctx, http.MethodPut, "/reservations/"+strconv.FormatInt(id, 10), body, nil)
}

// Holidays returns the raw holiday dates of the building.
func (c *Client) Holidays(ctx context.Context) ([]string, error) {
	const cacheKey = "buildings"
	var buildings []struct {
		Holidays []string `json:"holidays"`
	}
	if !c.readCache(ctx, cacheKey, &buildings) {
		if err := c.doJSON(ctx, http.MethodGet, "/buildings", nil, &buildings); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, buildings)
	}
	if len(buildings) == 0 {
		return nil, nil
	}
	return buildings[0].Holidays, nil
}

// HealthCheck checks that the backend answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cachePrefix+key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send encodes body as JSON and returns the raw response body of a 2xx reply.
func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPIRequest(req.Method, "error")
		return nil, err
	}
	defer resp.Body.Close()
	metrics.IncAPIRequest(req.Method, statusClass(resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &HTTPError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}
