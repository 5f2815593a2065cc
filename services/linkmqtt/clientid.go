package linkmqtt

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

const appID = "motionlink"

// DefaultClientID is stable per machine. Without a readable machine id a
// random one is used for the life of the process.
func DefaultClientID() string {
	if id, err := machineid.ProtectedID(appID); err == nil && len(id) >= 12 {
		return appID + "-" + id[:12]
	}
	return appID + "-" + uuid.NewString()[:8]
}
