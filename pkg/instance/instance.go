package instance

import (
	"os"

	"github.com/angelmondragon/boardpro-billing/pkg/env"
)

// GetID identifies the running process in logs. Heroku dynos report DYNO,
// workers may set WORKER_ID, and anything else falls back to the hostname.
func GetID() string {
	if id := env.First("DYNO", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
