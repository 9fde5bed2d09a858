// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and validation.
package config

import (
	"time"
)

// Config is the root configuration structure for framegate.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Renderer  RendererConfig  `json:"renderer"`
	Bridge    BridgeConfig    `json:"bridge"`
	Artifacts ArtifactsConfig `json:"artifacts"`
	Images    ImagesConfig    `json:"images"`
	Events    EventsConfig    `json:"events"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int    `json:"port"`
	Host    string `json:"host"`
	TLSCert string `json:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key"`  // Path to TLS private key file
}

// RendererConfig configures the renderer child process.
type RendererConfig struct {
	Command        interface{} `json:"command"` // string or []string
	WorkDir        string      `json:"work_dir"`
	ConfigPath     string      `json:"config_path"`
	CheckpointPath string      `json:"checkpoint_path"`
	PretrainedDir  string      `json:"pretrained_dir"`
	Seed           int         `json:"seed"`
	OutputDir      string      `json:"output_dir"`
	StopTimeout    string      `json:"stop_timeout"`
}

// GetCommand returns the renderer command as a string slice.
func (r *RendererConfig) GetCommand() []string {
	switch cmd := r.Command.(type) {
	case string:
		if cmd == "" {
			return nil
		}
		return []string{cmd}
	case []string:
		return cmd
	case []interface{}:
		result := make([]string, 0, len(cmd))
		for _, v := range cmd {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// BridgeConfig configures the process I/O bridge.
type BridgeConfig struct {
	PollInterval  string        `json:"poll_interval"`
	QueueSize     int           `json:"queue_size"`
	LogBufferSize int           `json:"log_buffer_size"`
	SendImage     string        `json:"send_image"` // "path" (full path) or "name" (basename only)
	Prompts       PromptsConfig `json:"prompts"`
}

// PromptsConfig holds additional prompt phrasings recognized by the
// classifier, on top of the built-in defaults. The renderer's wording
// has changed between revisions, so new phrasings are config additions
// rather than code changes.
type PromptsConfig struct {
	Image     []string `json:"image"`
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
}

// ArtifactsConfig configures output artifact discovery and streaming.
type ArtifactsConfig struct {
	CurrentName string   `json:"current_name"` // Canonical "live" artifact filename
	Extensions  []string `json:"extensions"`
	Debounce    string   `json:"debounce"` // Watcher debounce duration
}

// ImagesConfig configures the input image store.
type ImagesConfig struct {
	Dir        string   `json:"dir"`
	Default    string   `json:"default"` // Initial selected image (relative to dir)
	Extensions []string `json:"extensions"`
}

// EventsConfig configures the event system.
type EventsConfig struct {
	History HistoryConfig `json:"history"`
}

// HistoryConfig configures event history retention.
type HistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// ParseDuration parses a duration string with a default fallback.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
