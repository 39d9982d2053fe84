package cache

import "fmt"

const (
	KeySyncFull = "sync:full"
	KeyCameras  = "cameras"
)

func KeyTileStatuses(tileID string) string {
	return fmt.Sprintf("status:tile:%s", tileID)
}
