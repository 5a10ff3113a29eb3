package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// SchedulingOption configures the scheduling feed client.
type SchedulingOption func(*SchedulingClient)

// WithSchedulingHTTPClient sets a custom HTTP client.
func WithSchedulingHTTPClient(hc *http.Client) SchedulingOption {
	return func(c *SchedulingClient) {
		c.httpClient = hc
	}
}

// WithSchedulingRateLimit caps requests per second against the feed.
func WithSchedulingRateLimit(rps float64) SchedulingOption {
	return func(c *SchedulingClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// SchedulingClient pulls venue data from the timetabling service's
// JSON API.
type SchedulingClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSchedulingClient creates a client for the given feed base URL.
func NewSchedulingClient(baseURL string, opts ...SchedulingOption) *SchedulingClient {
	c := &SchedulingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Feed payload shapes. Room equipments arrive slash-joined in a single
// string and stay that way until the merge step splits them.
type feedVenue struct {
	BuildingID string      `json:"b_id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Floors     []feedFloor `json:"floors"`
}

type feedFloor struct {
	ID    string     `json:"f_id"`
	Rooms []feedRoom `json:"rooms"`
}

type feedRoom struct {
	ID            string `json:"r_id"`
	Name          string `json:"room_name"`
	Capacity      *int   `json:"capacity"`
	Accessibility string `json:"accessibility"`
	Equipments    string `json:"equipments"`
}

// FetchVenues downloads every venue the feed exposes and returns one
// Record per venue.
func (c *SchedulingClient) FetchVenues(ctx context.Context) ([]Record, error) {
	var venues []feedVenue
	if err := c.getJSON(ctx, "/venues", &venues); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(venues))
	for _, v := range venues {
		records = append(records, Record{
			BuildingID: v.BuildingID,
			Namespace:  venueNamespace(v),
		})
	}
	return records, nil
}

func venueNamespace(v feedVenue) *model.Namespace {
	ns := &model.Namespace{
		Name:    v.Name,
		Address: v.Address,
	}
	for _, ff := range v.Floors {
		floor := &model.Floor{
			BuildingID: v.BuildingID,
			ID:         ff.ID,
			Rooms:      make(map[string]*model.Room, len(ff.Rooms)),
		}
		for _, fr := range ff.Rooms {
			room := &model.Room{
				Name:          fr.Name,
				Accessibility: fr.Accessibility,
				EquipmentsRaw: fr.Equipments,
			}
			if fr.Capacity != nil {
				n := *fr.Capacity
				room.Capacity = &n
			}
			floor.Rooms[fr.ID] = room
		}
		ns.Floors = append(ns.Floors, floor)
	}
	return ns
}

func (c *SchedulingClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "source: scheduling rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "source: build scheduling request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "source: scheduling request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Wrap(fmt.Errorf("status %d", resp.StatusCode), "source: scheduling feed "+path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "source: decode scheduling response")
	}
	return nil
}
