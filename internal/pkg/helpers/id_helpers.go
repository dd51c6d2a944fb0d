package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// NewApplicationID returns APP- followed by 8 upper-case hex characters
func NewApplicationID() string {
	return "APP-" + hexToken(8)
}

// NewPSID returns PSID- followed by 12 upper-case hex characters
func NewPSID() string {
	return "PSID-" + hexToken(12)
}

// NewRequestID returns a random request correlation id
func NewRequestID() string {
	return uuid.NewString()
}

func hexToken(n int) string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:n])
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
