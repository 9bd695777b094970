package network

import (
	"strings"

	"github.com/ignite/offer-finder/internal/domain"
)

// Credentials is the named credential set for one network, passed into the
// adapter factory at setup time.
type Credentials struct {
	Network domain.Network
	Fields  map[string]string
}

// Get returns a trimmed field value.
func (c Credentials) Get(key string) string {
	if c.Fields == nil {
		return ""
	}
	return strings.TrimSpace(c.Fields[key])
}

// Missing lists the required fields that are absent or blank.
func (c Credentials) Missing(required []string) []string {
	var missing []string
	for _, key := range required {
		if c.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
