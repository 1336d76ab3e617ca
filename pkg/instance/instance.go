package instance

import "os"

// GetID returns the process instance identifier: WORKER_ID, then the
// platform-assigned DYNO name, then fallback.
func GetID(fallback string) string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return fallback
}
