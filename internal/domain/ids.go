package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a short prefixed identifier such as "msg-1a2b3c4d".
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + id[:8]
}
