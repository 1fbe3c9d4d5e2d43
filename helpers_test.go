/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
	"sort"
	"time"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler only fires callbacks when Advance is called, on the
// calling goroutine.
type fakeScheduler struct {
	now    time.Duration
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	target := s.now + d

	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.f()
	}

	s.now = target
}

func (s *fakeScheduler) nextDue(limit time.Duration) *fakeTimer {
	live := make([]*fakeTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= limit {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].at < live[j].at })
	return live[0]
}

func (s *fakeScheduler) live() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type stageEvent struct {
	stage  Stage
	active bool
}

type recordingView struct {
	events  []stageEvent
	actives map[Stage]bool
	peak    int
	opening []bool
	answers []Answer
	replays []bool
	muted   []bool
}

func newRecordingView() *recordingView {
	return &recordingView{actives: make(map[Stage]bool)}
}

func (v *recordingView) Stage(stage Stage, active bool) {
	v.events = append(v.events, stageEvent{stage, active})
	if active {
		v.actives[stage] = true
	} else {
		delete(v.actives, stage)
	}
	v.peak = max(v.peak, len(v.actives))
}

func (v *recordingView) Opening(opening bool) {
	v.opening = append(v.opening, opening)
}

func (v *recordingView) Answer(answer Answer, replay bool) {
	v.answers = append(v.answers, answer)
	v.replays = append(v.replays, replay)
}

func (v *recordingView) Muted(muted bool) {
	v.muted = append(v.muted, muted)
}

type recordingPlayer struct {
	clips []Clip
	err   error
}

func (p *recordingPlayer) Play(clip Clip) error {
	p.clips = append(p.clips, clip)
	return p.err
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func testConfig() *Config {
	return &Config{
		openDelay:   1200 * time.Millisecond,
		settleDelay: 300 * time.Millisecond,
		particles:   5,
		port:        8080,
		pool:        []string{"A", "B", "C", "D", "E"},
	}
}

func instantConfig() *Config {
	cfg := testConfig()
	cfg.openDelay = 0
	cfg.settleDelay = 0
	return cfg
}
