// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Renderer: RendererConfig{
			Command:   []string{"python", "inference_streaming.py"},
			OutputDir: "/tmp/out",
		},
		Images: ImagesConfig{Dir: "/tmp/images"},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(validConfig()))
}

func TestValidator_MissingCommand(t *testing.T) {
	cfg := validConfig()
	cfg.Renderer.Command = nil

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer.command")
}

func TestValidator_MissingOutputDir(t *testing.T) {
	cfg := validConfig()
	cfg.Renderer.OutputDir = ""

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer.output_dir")
}

func TestValidator_MissingImageDir(t *testing.T) {
	cfg := validConfig()
	cfg.Images.Dir = ""

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "images.dir")
}

func TestValidator_BadSendImage(t *testing.T) {
	cfg := validConfig()
	cfg.Bridge.SendImage = "basename"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge.send_image")
}

func TestValidator_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 700000

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidator_TLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TLSCert = "/etc/cert.pem"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls_cert and tls_key must be set together")
}

func TestValidator_BadDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Bridge.PollInterval = "fast"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge.poll_interval")
}

func TestValidator_BadExtension(t *testing.T) {
	cfg := validConfig()
	cfg.Artifacts.Extensions = []string{"mp4"}

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifacts.extensions")
}

func TestValidator_AccumulatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Renderer.Command = nil
	cfg.Images.Dir = ""

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Len(t, verr.Errors, 2)
}
