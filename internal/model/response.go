package model

// ListResponse is the standard envelope for list endpoints, wrapping results
// in a "resource" array.
type ListResponse[T any] struct {
	Resource []T          `json:"resource"`
	Meta     ResponseMeta `json:"meta"`
}

// ResponseMeta carries list metadata.
type ResponseMeta struct {
	Count int `json:"count"`
}

// NewListResponse wraps items in the list envelope. A nil slice is rendered
// as an empty array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Resource: items, Meta: ResponseMeta{Count: len(items)}}
}

// ErrorResponse is the standard envelope for error responses. Hint is an
// optional remediation shown to API clients.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// DashboardStats summarizes the platform for the admin dashboard.
type DashboardStats struct {
	Products             int `json:"products"`
	Plans                int `json:"plans"`
	Users                int `json:"users"`
	ActiveSubscriptions  int `json:"active_subscriptions"`
	PendingSubscriptions int `json:"pending_subscriptions"`
}
