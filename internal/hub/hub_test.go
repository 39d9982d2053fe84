package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func segStatus(id string) *domain.SegmentStatus {
	return &domain.SegmentStatus{
		Segment: &domain.RoadSegment{ID: id, Street: "אבן גבירול"},
		Status:  domain.LaneStatus{Blocked: true, Category: domain.CategoryBlocked},
	}
}

func TestFanoutDeliversOnlySubscribedTiles(t *testing.T) {
	h := testHub()
	subscribed := NewClient("a", 4)
	other := NewClient("b", 4)
	h.Subscribe(subscribed, []string{"14/9770/6630"})
	h.Subscribe(other, []string{"14/9999/9999"})

	h.fanoutDeltas([]domain.StatusDelta{
		{Type: domain.DeltaUpdate, TileID: "14/9770/6630", Segment: segStatus("1")},
	})

	require.Len(t, subscribed.Send, 1)
	assert.Empty(t, other.Send)

	var msg DeltaMessage
	require.NoError(t, json.Unmarshal(<-subscribed.Send, &msg))
	assert.Equal(t, "delta", msg.Type)
	require.Len(t, msg.Payload.Updates, 1)
	assert.Equal(t, "1", msg.Payload.Updates[0].Segment.ID)
}

func TestFanoutBatchesUpdatesAndRemoves(t *testing.T) {
	h := testHub()
	client := NewClient("a", 4)
	h.Subscribe(client, []string{"t1", "t2"})

	h.fanoutDeltas([]domain.StatusDelta{
		{Type: domain.DeltaUpdate, TileID: "t1", Segment: segStatus("1")},
		{Type: domain.DeltaRemove, TileID: "t2", ID: "2"},
	})

	require.Len(t, client.Send, 1)
	var msg DeltaMessage
	require.NoError(t, json.Unmarshal(<-client.Send, &msg))
	assert.Len(t, msg.Payload.Updates, 1)
	assert.Equal(t, []string{"2"}, msg.Payload.Removes)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := testHub()
	client := NewClient("a", 4)
	h.Subscribe(client, []string{"t1"})
	h.Unsubscribe(client, []string{"t1"})

	h.fanoutDeltas([]domain.StatusDelta{
		{Type: domain.DeltaUpdate, TileID: "t1", Segment: segStatus("1")},
	})

	assert.Empty(t, client.Send)
}

func TestFanoutEvictsOldestWhenBufferFull(t *testing.T) {
	h := testHub()
	client := NewClient("a", 1)
	h.Subscribe(client, []string{"t1"})

	h.fanoutDeltas([]domain.StatusDelta{{Type: domain.DeltaUpdate, TileID: "t1", Segment: segStatus("old")}})
	h.fanoutDeltas([]domain.StatusDelta{{Type: domain.DeltaUpdate, TileID: "t1", Segment: segStatus("new")}})

	require.Len(t, client.Send, 1)
	var msg DeltaMessage
	require.NoError(t, json.Unmarshal(<-client.Send, &msg))
	require.Len(t, msg.Payload.Updates, 1)
	assert.Equal(t, "new", msg.Payload.Updates[0].Segment.ID)
}

func TestTileIDRoundTrip(t *testing.T) {
	// Rabin Square, Tel Aviv.
	id := TileID(32.0809, 34.7806, 14)
	zoom, x, y, ok := ParseTileID(id)
	require.True(t, ok)
	assert.Equal(t, 14, zoom)

	minLat, minLon, maxLat, maxLon := TileBounds(zoom, x, y)
	assert.LessOrEqual(t, minLat, 32.0809)
	assert.GreaterOrEqual(t, maxLat, 32.0809)
	assert.LessOrEqual(t, minLon, 34.7806)
	assert.GreaterOrEqual(t, maxLon, 34.7806)
}

func TestTileForSegment(t *testing.T) {
	seg := &domain.RoadSegment{
		ID: "1",
		Geometry: [][]domain.Point{{
			{Lat: 32.0809, Lng: 34.7806},
			{Lat: 32.0850, Lng: 34.7810},
		}},
	}
	id, ok := TileForSegment(seg, 14)
	require.True(t, ok)
	assert.Equal(t, TileID(32.0809, 34.7806, 14), id)

	_, ok = TileForSegment(&domain.RoadSegment{ID: "2"}, 14)
	assert.False(t, ok)
}

func TestAdjacentTiles(t *testing.T) {
	tiles := AdjacentTiles(14, 9770, 6630)
	assert.Len(t, tiles, 9)
	assert.Contains(t, tiles, "14/9770/6630")
	assert.Contains(t, tiles, "14/9769/6629")
}
