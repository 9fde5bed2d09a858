// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateRenderer(cfg, errs)
	v.validateBridge(cfg, errs)
	v.validateArtifacts(cfg, errs)
	v.validateImages(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", fmt.Sprintf("invalid port %d", cfg.Server.Port))
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
}

func (v *Validator) validateRenderer(cfg *Config, errs *ValidationError) {
	if len(cfg.Renderer.GetCommand()) == 0 {
		errs.Add("renderer.command", "required")
	}
	if cfg.Renderer.OutputDir == "" {
		errs.Add("renderer.output_dir", "required")
	}
}

func (v *Validator) validateBridge(cfg *Config, errs *ValidationError) {
	switch cfg.Bridge.SendImage {
	case "", "path", "name":
	default:
		errs.Add("bridge.send_image", fmt.Sprintf("must be \"path\" or \"name\", got %q", cfg.Bridge.SendImage))
	}
	if cfg.Bridge.QueueSize < 0 {
		errs.Add("bridge.queue_size", "must be positive")
	}
	if cfg.Bridge.LogBufferSize < 0 {
		errs.Add("bridge.log_buffer_size", "must be positive")
	}
}

func (v *Validator) validateArtifacts(cfg *Config, errs *ValidationError) {
	for _, ext := range cfg.Artifacts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs.Add("artifacts.extensions", fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}
}

func (v *Validator) validateImages(cfg *Config, errs *ValidationError) {
	if cfg.Images.Dir == "" {
		errs.Add("images.dir", "required")
	}
	for _, ext := range cfg.Images.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs.Add("images.extensions", fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := map[string]string{
		"renderer.stop_timeout":  cfg.Renderer.StopTimeout,
		"bridge.poll_interval":   cfg.Bridge.PollInterval,
		"artifacts.debounce":     cfg.Artifacts.Debounce,
		"events.history.max_age": cfg.Events.History.MaxAge,
	}
	for field, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			errs.Add(field, fmt.Sprintf("invalid duration %q", val))
		}
	}
}
