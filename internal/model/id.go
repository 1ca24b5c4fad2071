package model

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes for each record kind.
const (
	PrefixProcess     = "pr"
	PrefixStage       = "st"
	PrefixRequirement = "rq"
	PrefixDocument    = "dc"
	PrefixReminder    = "rm"
	PrefixUser        = "us"
)

// GenerateID returns a prefixed random ID like "pr-3f9a0c12be47".
func GenerateID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + hex[:12]
}
