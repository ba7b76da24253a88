package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random v4 UUID without dashes, prefixed with "prefix_" when
// prefix is set. Session and token ids use it so they never collide with the
// dashed record ids assigned by the store.
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
