package domain

// Page sizes requested from the API for each listed resource.
const (
	UsersPageSize      = 100
	AccessLogsPageSize = 1000
)

// Cursor pagination query parameters.
const (
	PageSizeParam  = "page[size]"
	PageAfterParam = "page[after]"
)

// PageMeta is the "meta" object of a cursor-paginated list response.
type PageMeta struct {
	HasMore     bool   `json:"has_more"`
	AfterCursor string `json:"after_cursor"`
}

// NextCursor returns the cursor for the following page and whether one
// should be requested. A page claiming more results without a cursor ends
// the listing.
func (m *PageMeta) NextCursor() (string, bool) {
	if m == nil || !m.HasMore || m.AfterCursor == "" {
		return "", false
	}
	return m.AfterCursor, true
}
