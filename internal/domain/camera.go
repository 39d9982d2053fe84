package domain

// CameraPoint is an enforcement camera record from the geographic
// feature feed. HouseNumber is 0 when the feed carries no house number
// for the camera.
type CameraPoint struct {
	ID          string `json:"id"`
	Location    Point  `json:"location"`
	Street      string `json:"street"`
	HouseNumber int    `json:"houseNumber,omitempty"`
	Active      bool   `json:"active"`
}

// HasHouseNumber reports whether the feed attached a house number to
// this camera.
func (c *CameraPoint) HasHouseNumber() bool {
	return c.HouseNumber > 0
}

// CameraAssignment maps a camera to the one or two road segments it
// observes. Bidirectional means geometry alone could not resolve the
// camera to a single direction and a human-submitted photo report is
// needed to disambiguate.
type CameraAssignment struct {
	CameraID      string   `json:"cameraId"`
	SegmentIDs    []string `json:"segmentIds"`
	Bidirectional bool     `json:"bidirectional"`
	DistanceM     float64  `json:"distanceM"`
}

// CameraStatus pairs a camera with its assignment for serving.
// Assignment is nil when no segment fell within the snap radius.
type CameraStatus struct {
	Camera     *CameraPoint      `json:"camera"`
	Assignment *CameraAssignment `json:"assignment,omitempty"`
}
