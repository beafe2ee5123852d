// Package uuid provides UUID v4 generation and client-side temp id utilities.
package uuid

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID v4.
// Enforces strict format with dashes and correct variant bits.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}

// TempID generates a client-side placeholder id for records created while
// offline. The id is not the eventual server-assigned identifier.
func TempID() string {
	suffix := strings.ReplaceAll(New(), "-", "")[:6]
	return fmt.Sprintf("temp-%d-%s", time.Now().UnixMilli(), suffix)
}

// IsTempID reports whether an id is a client-generated placeholder.
func IsTempID(s string) bool {
	return strings.HasPrefix(s, "temp-")
}
