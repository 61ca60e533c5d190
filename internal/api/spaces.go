package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"byronhub/internal/model"
)

// SpaceFilter narrows a space search. Zero values are not sent.
type SpaceFilter struct {
	Identifier   string
	Category     string
	MinOccupants int
	Floor        string
}

func (f SpaceFilter) query() url.Values {
	q := url.Values{}
	q.Set("reservable", "true")
	if f.Identifier != "" {
		q.Set("id", f.Identifier)
	}
	if f.MinOccupants > 0 {
		q.Set("maxOccupants", strconv.Itoa(f.MinOccupants))
	}
	if f.Category != "" {
		q.Set("reservabilityCategory", f.Category)
	}
	if f.Floor != "" {
		q.Set("floor", f.Floor)
	}
	return q
}

type categoryRef struct {
	Name string `json:"name"`
}

type spaceRecord struct {
	ID                    model.ID        `json:"id"`
	Name                  string          `json:"name"`
	ReservabilityCategory *categoryRef    `json:"reservabilityCategory"`
	MaxUsage              *int            `json:"maxUsage"`
	MaxOccupants          *int            `json:"maxOccupants"`
	Floor                 json.RawMessage `json:"floor"`
	AssignedTo            json.RawMessage `json:"assignedTo"`
}

// Capacity is the number of people a space admits: maxOccupants scaled by
// the maxUsage percentage, rounded down.
func Capacity(maxOccupants, maxUsage int) int {
	if maxOccupants <= 0 || maxUsage <= 0 {
		return 0
	}
	return maxOccupants * maxUsage / 100
}

func (r spaceRecord) toSpace() model.Space {
	s := model.Space{
		ID:         r.ID,
		Name:       r.Name,
		Floor:      scalarString(r.Floor),
		AssignedTo: assignee(r.AssignedTo),
	}
	if r.ReservabilityCategory != nil {
		s.Category = r.ReservabilityCategory.Name
	}
	if r.MaxOccupants != nil {
		s.MaxOccupants = *r.MaxOccupants
	}
	if r.MaxUsage != nil {
		s.MaxUsage = *r.MaxUsage
	}
	s.Capacity = Capacity(s.MaxOccupants, s.MaxUsage)
	return s
}

// scalarString renders a JSON string or number without quotes.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// assignee accepts either an id or an object carrying one.
func assignee(raw json.RawMessage) string {
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(raw, &obj) == nil && len(obj.ID) > 0 {
		return scalarString(obj.ID)
	}
	return scalarString(raw)
}

// SearchSpaces returns the reservable spaces matching f.
func (c *Client) SearchSpaces(ctx context.Context, f SpaceFilter) ([]model.Space, error) {
	path := withQuery("/spaces", f.query())
	cacheKey := "spaces:" + f.query().Encode()

	var records []spaceRecord
	if !c.readCache(ctx, cacheKey, &records) {
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, records)
	}

	spaces := make([]model.Space, 0, len(records))
	for _, r := range records {
		spaces = append(spaces, r.toSpace())
	}
	return spaces, nil
}

// SpaceUpdate is the body of PUT /spaces/{id}. Nil and empty fields are left
// out of the request.
type SpaceUpdate struct {
	Category   string
	MaxUsage   *int
	AssignedTo string
	OpenTime   string // HH:MM UTC
	CloseTime  string // HH:MM UTC
}

func (u SpaceUpdate) body() (map[string]any, error) {
	out := map[string]any{}
	if u.Category != "" {
		out["reservabilityCategory"] = categoryRef{Name: u.Category}
	}
	if u.MaxUsage != nil {
		out["maxUsage"] = *u.MaxUsage
	}
	if u.AssignedTo != "" {
		out["assignedTo"] = u.AssignedTo
	}
	for key, hhmm := range map[string]string{"openTime": u.OpenTime, "closeTime": u.CloseTime} {
		if hhmm == "" {
			continue
		}
		t, err := time.Parse("15:04", hhmm)
		if err != nil {
			return nil, err
		}
		out[key] = time.Date(1970, time.January, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
	}
	return out, nil
}

// UpdateSpace changes a space's attributes (manager only).
func (c *Client) UpdateSpace(ctx context.Context, id model.ID, u SpaceUpdate) error {
	body, err := u.body()
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodPut, "/spaces/"+url.PathEscape(id.String()), body, nil); err != nil {
		return err
	}
	c.dropSpaceCache(ctx)
	return nil
}

func (c *Client) dropSpaceCache(ctx context.Context) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, cachePrefix+"spaces:*", 100).Iterator()
	for iter.Next(ctx) {
		c.redis.Del(ctx, iter.Val())
	}
}
