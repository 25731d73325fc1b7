// Package util holds small helpers shared by the server packages.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random v4 UUID in compact hex form, optionally prefixed
// with "<prefix>_". It is used for token IDs and request IDs.
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
