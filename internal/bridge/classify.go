// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"strings"

	"github.com/wingedpig/framegate/internal/config"
)

// Signal is the classified meaning of one line of renderer output: which
// input, if any, the renderer is waiting for.
type Signal int

const (
	// SignalNone means the line carried no recognized prompt.
	SignalNone Signal = iota
	// SignalAwaitImage means the renderer wants the input image path.
	SignalAwaitImage
	// SignalAwaitPrimary means the renderer wants the first token of a
	// command cycle (the camera/mouse action).
	SignalAwaitPrimary
	// SignalAwaitSecondary means the renderer wants the second token
	// (the movement action).
	SignalAwaitSecondary
)

func (s Signal) String() string {
	switch s {
	case SignalAwaitImage:
		return "image"
	case SignalAwaitPrimary:
		return "primary"
	case SignalAwaitSecondary:
		return "secondary"
	}
	return "none"
}

// Built-in phrasings, collected from observed renderer revisions. The
// renderer's wording is not stable; additions belong here or in the
// bridge.prompts config section, nowhere else.
var (
	defaultImagePrompts = []string{
		"please input the image path",
	}
	defaultPrimaryPrompts = []string{
		"please input the mouse action",
	}
	defaultSecondaryPrompts = []string{
		"please input the movement action",
		"press [w, s, a, d, q]",
	}
)

// Classifier maps renderer output lines to Signals by case-insensitive
// substring matching. It is total: any input, however garbled, yields a
// Signal (usually SignalNone).
type Classifier struct {
	image     []string
	primary   []string
	secondary []string
}

// NewClassifier creates a classifier with the built-in phrasings plus
// any extras from config.
func NewClassifier(extra config.PromptsConfig) *Classifier {
	return &Classifier{
		image:     appendLowered(defaultImagePrompts, extra.Image),
		primary:   appendLowered(defaultPrimaryPrompts, extra.Primary),
		secondary: appendLowered(defaultSecondaryPrompts, extra.Secondary),
	}
}

// defaultClassifier returns a classifier with only the built-in
// phrasings.
func defaultClassifier() *Classifier {
	return NewClassifier(config.PromptsConfig{})
}

// Classify returns the Signal for one line of renderer output.
// The image prompt wins on overlap: it can only legitimately occur
// right after process start, so a match there is the safest reading.
func (c *Classifier) Classify(line string) Signal {
	if line == "" {
		return SignalNone
	}
	lowered := strings.ToLower(line)

	if matchAny(lowered, c.image) {
		return SignalAwaitImage
	}
	if matchAny(lowered, c.primary) {
		return SignalAwaitPrimary
	}
	if matchAny(lowered, c.secondary) {
		return SignalAwaitSecondary
	}
	return SignalNone
}

func matchAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

func appendLowered(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, s := range extra {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
