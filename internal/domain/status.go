package domain

// ConnectionState is the outcome of a network connectivity check.
type ConnectionState string

const (
	ConnectionOK             ConnectionState = "ok"
	ConnectionUnauthorized   ConnectionState = "unauthorized"
	ConnectionUnreachable    ConnectionState = "unreachable"
	ConnectionNotImplemented ConnectionState = "not_implemented"
)

// ConnectionStatus is returned by an adapter's connection test. Auth and
// transport failures are expected outcomes and land here, not in an error.
type ConnectionStatus struct {
	State   ConnectionState `json:"state"`
	Message string          `json:"message,omitempty"`
}

// OK reports whether the network answered with valid credentials.
func (s ConnectionStatus) OK() bool {
	return s.State == ConnectionOK
}

// SearchState is the per-network outcome of one aggregation run.
type SearchState string

const (
	SearchOK             SearchState = "ok"
	SearchUnauthorized   SearchState = "unauthorized"
	SearchUnreachable    SearchState = "unreachable"
	SearchNotImplemented SearchState = "not_implemented"
	SearchFailed         SearchState = "error"
)

// NetworkStatus reports what one network contributed to a search, so callers
// can show "impact: 12 offers; cj: unreachable".
type NetworkStatus struct {
	State      SearchState `json:"state"`
	Count      int         `json:"count"`
	Duplicates int         `json:"duplicates,omitempty"`
	Message    string      `json:"message,omitempty"`
}
