// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import "strings"

// Token defaults used when a client omits a field. "U" is the neutral
// camera action, "Q" the no-move action in the renderer's key scheme.
const (
	DefaultPrimary   = "U"
	DefaultSecondary = "Q"
)

// Command is one client-issued control cycle: a pair of opaque
// single-character tokens delivered to the renderer as two lines.
// Immutable once enqueued.
type Command struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// NormalizeCommand builds a Command from raw client input: tokens are
// trimmed, reduced to their first character, and uppercased; empty
// slots fall back to the defaults.
func NormalizeCommand(primary, secondary string) Command {
	return Command{
		Primary:   normalizeToken(primary, DefaultPrimary),
		Secondary: normalizeToken(secondary, DefaultSecondary),
	}
}

func normalizeToken(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return strings.ToUpper(s[:1])
}
