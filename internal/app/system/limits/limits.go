// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the largest JSON request body any handler decodes.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected
	// instead of silently truncated.
	MaxPasswordBytes = 72
)
