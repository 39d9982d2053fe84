// Package routing is a thin client for the external road-routing
// service. It connects two user-picked points with a drivable path
// for the simulator flow; core matching never consults it.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		DistanceM float64 `json:"distance"`
		DurationS float64 `json:"duration"`
	} `json:"routes"`
	Message string `json:"message,omitempty"`
}

// Route is a drivable path between two points.
type Route struct {
	Points    []domain.Point
	DistanceM float64
	DurationS float64
}

// Route returns the drivable path from a to b. Coordinates on the
// wire are longitude-first.
func (c *Client) Route(ctx context.Context, from, to domain.Point) (*Route, error) {
	reqURL := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var routeResp routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&routeResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if routeResp.Code != "Ok" {
		return nil, fmt.Errorf("routing error: %s %s", routeResp.Code, routeResp.Message)
	}
	if len(routeResp.Routes) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	best := routeResp.Routes[0]
	points := make([]domain.Point, 0, len(best.Geometry.Coordinates))
	for _, xy := range best.Geometry.Coordinates {
		points = append(points, domain.Point{Lat: xy[1], Lng: xy[0]})
	}
	return &Route{
		Points:    points,
		DistanceM: best.DistanceM,
		DurationS: best.DurationS,
	}, nil
}
