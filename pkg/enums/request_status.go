package enums

import "fmt"

// RequestStatus describes the lifecycle state of a photo request.
type RequestStatus string

const (
	RequestStatusOpen    RequestStatus = "open"
	RequestStatusClosed  RequestStatus = "closed"
	RequestStatusExpired RequestStatus = "expired"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusOpen,
	RequestStatusClosed,
	RequestStatusExpired,
}

// String returns the literal string for the status.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the status is known.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer accept entries.
func (r RequestStatus) IsTerminal() bool {
	return r == RequestStatusClosed || r == RequestStatusExpired
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
