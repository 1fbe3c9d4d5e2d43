/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayModel(t *testing.T, cfg *Config, sched Scheduler) (*playModel, *recordingPlayer) {
	t.Helper()

	player := &recordingPlayer{}
	m, err := newPlayModel(cfg, sched, player, testRand())
	require.NoError(t, err)
	t.Cleanup(func() { close(m.done) })

	return m, player
}

func press(m *playModel, key tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(key)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayWalkthrough(t *testing.T) {
	m, player := newTestPlayModel(t, instantConfig(), nil)

	assert.Contains(t, m.View(), "The Book of Answers")

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StageInstruction, m.view.stage)
	assert.Contains(t, m.View(), "Hold a yes-or-no question")

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StageAnswer, m.view.stage)
	require.NotNil(t, m.view.answer)
	assert.Contains(t, m.View(), m.view.answer.Text)

	first := *m.view.answer
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotEqual(t, first, *m.view.answer)

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StageCover, m.view.stage)
	assert.True(t, m.view.active)

	assert.Equal(t, []Clip{ClipOpen, ClipReveal, ClipReveal, ClipOpen}, player.clips)
}

func TestPlayMuteToggle(t *testing.T) {
	m, player := newTestPlayModel(t, instantConfig(), nil)

	press(m, runes("m"))
	assert.True(t, m.view.muted)
	assert.Contains(t, m.View(), "sound (off)")

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, player.clips)

	press(m, runes("m"))
	assert.False(t, m.view.muted)
	assert.Contains(t, m.View(), "sound (on)")
}

func TestPlayQuit(t *testing.T) {
	m, _ := newTestPlayModel(t, instantConfig(), nil)

	cmd := press(m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	assert.Nil(t, press(m, runes("x")))
}

func TestPlayTimedTransitions(t *testing.T) {
	sched := &fakeScheduler{}
	m, _ := newTestPlayModel(t, testConfig(), sched)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "the cover creaks open")

	sched.Advance(1200 * time.Millisecond)
	assert.False(t, m.view.active)

	sched.Advance(300 * time.Millisecond)
	assert.Equal(t, StageInstruction, m.view.stage)
	assert.True(t, m.view.active)
}

func TestPlayRunsPostedCalls(t *testing.T) {
	m, _ := newTestPlayModel(t, testConfig(), nil)

	ran := false
	m.post(func() { ran = true })

	msg := m.waitForCall()()
	call, ok := msg.(callMsg)
	require.True(t, ok)

	_, cmd := m.Update(call)
	assert.True(t, ran)
	assert.NotNil(t, cmd)
}

func TestPlayFadesNewAnswers(t *testing.T) {
	m, _ := newTestPlayModel(t, instantConfig(), nil)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.now.Before(m.view.fadeUntil))

	m.Update(frameMsg(m.now.Add(time.Second)))
	assert.False(t, m.now.Before(m.view.fadeUntil))
}

func TestPlaySkyRendersParticles(t *testing.T) {
	m, _ := newTestPlayModel(t, testConfig(), nil)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})

	sky := m.renderSky()
	assert.Equal(t, skyHeight-1, bytes.Count([]byte(sky), []byte("\n")))
}

func TestBellRings(t *testing.T) {
	var buf bytes.Buffer
	b := bell{w: &buf}

	require.NoError(t, b.Play(ClipOpen))
	require.NoError(t, b.Play(ClipReveal))
	assert.Equal(t, "\a\a\a", buf.String())
}
