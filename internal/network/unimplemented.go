package network

import (
	"context"
	"fmt"

	"github.com/ignite/offer-finder/internal/domain"
)

// Unimplemented stands in for a network whose API client has not been built
// yet. It never returns partial data.
type Unimplemented struct {
	network domain.Network
}

// NewUnimplemented returns a placeholder adapter for n.
func NewUnimplemented(n domain.Network) *Unimplemented {
	return &Unimplemented{network: n}
}

// UnimplementedFactory registers a placeholder that still demands the
// network's real credential fields, so configuring it surfaces as
// "not_implemented" in status reports instead of being silently absent.
func UnimplementedFactory(n domain.Network, required ...string) Factory {
	return Factory{
		Network:  n,
		Required: required,
		New: func(Credentials) (Adapter, error) {
			return NewUnimplemented(n), nil
		},
	}
}

func (u *Unimplemented) Network() domain.Network { return u.network }

func (u *Unimplemented) Capabilities() Capabilities { return Capabilities{} }

func (u *Unimplemented) TestConnection(ctx context.Context) domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:   domain.ConnectionNotImplemented,
		Message: fmt.Sprintf("%s integration is not available yet", u.network),
	}
}

func (u *Unimplemented) SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error) {
	return nil, fmt.Errorf("%s search: %w", u.network, domain.ErrNotImplemented)
}

func (u *Unimplemented) GetOfferDetails(ctx context.Context, offerID string) (domain.Offer, error) {
	return domain.Offer{}, fmt.Errorf("%s offer details: %w", u.network, domain.ErrNotImplemented)
}
