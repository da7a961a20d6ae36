// internal/app/system/limits/limits.go
package limits

// Request body size caps. Every JSON endpoint wraps its body in
// http.MaxBytesReader with one of these so an oversized payload fails the
// decode instead of exhausting memory.
const (
	// MaxJSONBody bounds ordinary API request bodies (credentials, request
	// motives, room edits).
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxComplaintBody bounds complaint submissions, which carry free-form
	// text.
	MaxComplaintBody = 256 << 10 // 256 KB
)
