package network

import (
	"fmt"
	"strings"

	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// Factory builds an adapter once its required credential fields are present.
type Factory struct {
	Network  domain.Network
	Required []string
	New      func(Credentials) (Adapter, error)
}

// Registry holds factories in registration order, which is also the order
// networks are searched and reported in.
type Registry struct {
	factories []Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a factory. Registering the same network twice replaces the
// earlier factory in place.
func (r *Registry) Register(f Factory) {
	for i, existing := range r.factories {
		if existing.Network == f.Network {
			r.factories[i] = f
			return
		}
	}
	r.factories = append(r.factories, f)
}

// Networks lists registered networks in order.
func (r *Registry) Networks() []domain.Network {
	out := make([]domain.Network, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f.Network)
	}
	return out
}

// Unconfigured describes a registered network left out of the search set.
type Unconfigured struct {
	Network domain.Network `json:"network"`
	Reason  string         `json:"reason"`
}

// Build constructs an adapter for every network whose credentials are
// complete. Networks with missing fields, or whose factory rejects the
// credentials, are excluded and reported rather than failing the build.
func (r *Registry) Build(creds map[domain.Network]Credentials) ([]Adapter, []Unconfigured) {
	var adapters []Adapter
	var skipped []Unconfigured

	for _, f := range r.factories {
		c, ok := creds[f.Network]
		if !ok {
			c = Credentials{Network: f.Network}
		}
		c.Network = f.Network

		if missing := c.Missing(f.Required); len(missing) > 0 {
			reason := fmt.Sprintf("missing %s", strings.Join(missing, ", "))
			logger.Info("network not configured", "network", f.Network, "reason", reason)
			skipped = append(skipped, Unconfigured{Network: f.Network, Reason: reason})
			continue
		}

		a, err := f.New(c)
		if err != nil {
			logger.Warn("network adapter rejected credentials", "network", f.Network, "error", err)
			skipped = append(skipped, Unconfigured{Network: f.Network, Reason: err.Error()})
			continue
		}
		if a == nil {
			skipped = append(skipped, Unconfigured{Network: f.Network, Reason: "disabled"})
			continue
		}
		adapters = append(adapters, a)
	}

	return adapters, skipped
}
