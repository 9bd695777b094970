package domain

import "errors"

// Sentinel errors shared by adapters, the aggregator and the API layer.
// Adapters wrap them with fmt.Errorf("...: %w", err); callers classify with errors.Is.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNetworkUnavailable   = errors.New("network unavailable")
	ErrNotImplemented       = errors.New("not implemented")
	ErrNoNetworksConfigured = errors.New("no networks configured")
	ErrInvalidQuery         = errors.New("invalid query")
	ErrOfferNotFound        = errors.New("offer not found")
)

// SearchStateFor classifies an adapter failure into a status value.
func SearchStateFor(err error) SearchState {
	switch {
	case err == nil:
		return SearchOK
	case errors.Is(err, ErrUnauthorized):
		return SearchUnauthorized
	case errors.Is(err, ErrNetworkUnavailable):
		return SearchUnreachable
	case errors.Is(err, ErrNotImplemented):
		return SearchNotImplemented
	default:
		return SearchFailed
	}
}
