/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		ok     bool
	}{
		"defaults":         {func(c *Config) {}, true},
		"port too low":     {func(c *Config) { c.port = 0 }, false},
		"port too high":    {func(c *Config) { c.port = 70000 }, false},
		"cert without key": {func(c *Config) { c.tlsCert = "cert.pem" }, false},
		"cert and key":     {func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, true},
		"negative delay":   {func(c *Config) { c.openDelay = -time.Second }, false},
		"too many motes":   {func(c *Config) { c.particles = maxParticles + 1 }, false},
		"no particles":     {func(c *Config) { c.particles = 0 }, true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)

			if tc.ok {
				assert.NoError(t, cfg.validate())
			} else {
				assert.Error(t, cfg.validate())
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestConfigLoadDefaultPool(t *testing.T) {
	cfg := testConfig()
	cfg.pool = nil

	require.NoError(t, cfg.load())
	assert.Equal(t, defaultAnswers, cfg.pool)
}

func TestConfigLoadAnswersFile(t *testing.T) {
	cfg := testConfig()
	cfg.answers = writeAnswers(t, "answers.txt", "One.\nTwo.\n")

	require.NoError(t, cfg.load())
	assert.Equal(t, []string{"One.", "Two."}, cfg.pool)
}

func TestCommandReadsEnvironment(t *testing.T) {
	t.Setenv("MAGICBOOK_PORT", "9090")
	t.Setenv("MAGICBOOK_OPEN_DELAY", "2s")
	t.Setenv("MAGICBOOK_MUTED", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--particles", "7"}))
	require.NoError(t, cmd.PersistentPreRunE(cmd, nil))

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 2*time.Second, cfg.openDelay)
	assert.True(t, cfg.muted)
	assert.Equal(t, 7, cfg.particles)
	assert.Equal(t, 300*time.Millisecond, cfg.settleDelay)
	assert.NotEmpty(t, cfg.pool)
}

func TestCommandHasPlay(t *testing.T) {
	cmd := newCmd(&Config{})

	play, _, err := cmd.Find([]string{"play"})
	require.NoError(t, err)
	assert.Equal(t, "play", play.Name())
}
