// Package gisapi is a client for the municipal geographic feature
// service. The service exposes layers behind a paginated query
// endpoint; each page carries a "more available" flag and geometry in
// x/y (longitude/latitude) axis order.
package gisapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

const defaultPageSize = 1000

type Client struct {
	baseURL       string
	segmentsLayer string
	camerasLayer  string
	pageSize      int
	httpClient    *http.Client
}

func New(baseURL, segmentsLayer, camerasLayer string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:       baseURL,
		segmentsLayer: segmentsLayer,
		camerasLayer:  camerasLayer,
		pageSize:      pageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type queryResponse struct {
	Features              []feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
	Error                 *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type feature struct {
	Attributes json.RawMessage `json:"attributes"`
	Geometry   json.RawMessage `json:"geometry"`
}

type polylineGeometry struct {
	Paths [][][2]float64 `json:"paths"`
}

type pointGeometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type segmentAttributes struct {
	ID         json.Number `json:"id"`
	Street     string      `json:"street_name"`
	FromStreet string      `json:"from_street"`
	ToStreet   string      `json:"to_street"`
	Direction  string      `json:"direction"`
	LaneStatus string      `json:"lane_status"`
}

type cameraAttributes struct {
	ID          json.Number `json:"id"`
	Street      string      `json:"street_name"`
	HouseNumber json.Number `json:"house_number"`
	Status      string      `json:"status"`
}

// The feed labels one-way directions with Hebrew compass words.
var feedDirections = map[string]domain.CompassDir{
	"צפון":      domain.DirNorth,
	"צפון מזרח": domain.DirNortheast,
	"מזרח":      domain.DirEast,
	"דרום מזרח": domain.DirSoutheast,
	"דרום":      domain.DirSouth,
	"דרום מערב": domain.DirSouthwest,
	"מערב":      domain.DirWest,
	"צפון מערב": domain.DirNorthwest,
}

// FetchSegments pages through the bus-lane layer and returns every
// segment record. Geometry validation is left to the caller.
func (c *Client) FetchSegments(ctx context.Context) ([]*domain.RoadSegment, error) {
	fetchedAt := time.Now()
	var segments []*domain.RoadSegment

	err := c.fetchAll(ctx, c.segmentsLayer, func(f feature) error {
		var attrs segmentAttributes
		if err := json.Unmarshal(f.Attributes, &attrs); err != nil {
			return fmt.Errorf("decoding segment attributes: %w", err)
		}

		var geom polylineGeometry
		if len(f.Geometry) > 0 {
			if err := json.Unmarshal(f.Geometry, &geom); err != nil {
				return fmt.Errorf("decoding segment geometry: %w", err)
			}
		}

		segments = append(segments, &domain.RoadSegment{
			ID:           attrs.ID.String(),
			Street:       attrs.Street,
			FromJunction: attrs.FromStreet,
			ToJunction:   attrs.ToStreet,
			Direction:    feedDirections[attrs.Direction],
			LaneStatus:   attrs.LaneStatus,
			Geometry:     toPolyline(geom.Paths),
			FetchedAt:    fetchedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// FetchCameras pages through the enforcement-camera layer.
func (c *Client) FetchCameras(ctx context.Context) ([]*domain.CameraPoint, error) {
	var cameras []*domain.CameraPoint

	err := c.fetchAll(ctx, c.camerasLayer, func(f feature) error {
		var attrs cameraAttributes
		if err := json.Unmarshal(f.Attributes, &attrs); err != nil {
			return fmt.Errorf("decoding camera attributes: %w", err)
		}

		var geom pointGeometry
		if len(f.Geometry) > 0 {
			if err := json.Unmarshal(f.Geometry, &geom); err != nil {
				return fmt.Errorf("decoding camera geometry: %w", err)
			}
		}

		houseNumber, _ := strconv.Atoi(attrs.HouseNumber.String())
		cameras = append(cameras, &domain.CameraPoint{
			ID:          attrs.ID.String(),
			Location:    domain.Point{Lat: geom.Y, Lng: geom.X},
			Street:      attrs.Street,
			HouseNumber: houseNumber,
			Active:      attrs.Status == "" || attrs.Status == domain.StatusActive,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cameras, nil
}

// fetchAll pages through one layer, invoking fn for every feature.
// Pagination continues while the response flags more records.
func (c *Client) fetchAll(ctx context.Context, layer string, fn func(feature) error) error {
	offset := 0
	for {
		page, err := c.fetchPage(ctx, layer, offset)
		if err != nil {
			return err
		}
		for _, f := range page.Features {
			if err := fn(f); err != nil {
				return err
			}
		}
		if !page.ExceededTransferLimit || len(page.Features) == 0 {
			return nil
		}
		offset += len(page.Features)
	}
}

func (c *Client) fetchPage(ctx context.Context, layer string, offset int) (*queryResponse, error) {
	params := url.Values{}
	params.Set("f", "json")
	params.Set("where", "1=1")
	params.Set("outFields", "*")
	params.Set("resultOffset", strconv.Itoa(offset))
	params.Set("resultRecordCount", strconv.Itoa(c.pageSize))

	reqURL := fmt.Sprintf("%s/%s/query?%s", c.baseURL, layer, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var page queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if page.Error != nil {
		return nil, fmt.Errorf("API error %d: %s", page.Error.Code, page.Error.Message)
	}
	return &page, nil
}

// toPolyline converts feed paths (x/y pairs) into lat/lng parts.
func toPolyline(paths [][][2]float64) [][]domain.Point {
	if len(paths) == 0 {
		return nil
	}
	out := make([][]domain.Point, 0, len(paths))
	for _, path := range paths {
		part := make([]domain.Point, 0, len(path))
		for _, xy := range path {
			part = append(part, domain.Point{Lat: xy[1], Lng: xy[0]})
		}
		out = append(out, part)
	}
	return out
}
