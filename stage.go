/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"
)

type Stage int

const (
	StageCover Stage = iota
	StageInstruction
	StageAnswer
)

func (s Stage) String() string {
	switch s {
	case StageCover:
		return "cover"
	case StageInstruction:
		return "instruction"
	case StageAnswer:
		return "answer"
	default:
		return "unknown"
	}
}

// Timer is a scheduled callback that can be cancelled before it fires.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once d has elapsed. Implementations must invoke f on the
// goroutine that owns the Machine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// loopScheduler hands expired callbacks to post, which queues them onto the
// owning event loop instead of running them on the timer goroutine.
type loopScheduler struct {
	post func(func())
}

func (l loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		l.post(f)
	})
}

type pendingTransition struct {
	target Stage
	timer  Timer
}

// Machine tracks which stage is active. At most one stage is active at a
// time, and none are while a transition is settling.
type Machine struct {
	sched    Scheduler
	settle   time.Duration
	current  Stage
	active   bool
	pending  *pendingTransition
	onChange func(stage Stage, active bool)
}

func newMachine(sched Scheduler, settle time.Duration, onChange func(Stage, bool)) *Machine {
	if onChange == nil {
		onChange = func(Stage, bool) {}
	}

	return &Machine{
		sched:    sched,
		settle:   settle,
		current:  StageCover,
		active:   true,
		onChange: onChange,
	}
}

// Active returns the active stage; ok is false while a transition is settling.
func (m *Machine) Active() (Stage, bool) {
	return m.current, m.active
}

func (m *Machine) Is(stage Stage) bool {
	return m.active && m.current == stage
}

// Pending returns the destination of the scheduled transition, if any.
func (m *Machine) Pending() (Stage, bool) {
	if m.pending == nil {
		return 0, false
	}

	return m.pending.target, true
}

// Go deactivates every stage, then activates target after the settle delay.
// Any transition already pending is cancelled.
func (m *Machine) Go(target Stage) {
	m.Cancel()

	if m.active {
		m.active = false
		m.onChange(m.current, false)
	}

	if m.settle <= 0 {
		m.activate(target)

		return
	}

	m.schedule(m.settle, target, func() {
		m.activate(target)
	})
}

// GoAfter leaves the current stage active for delay, then calls Go(target).
func (m *Machine) GoAfter(delay time.Duration, target Stage) {
	if delay <= 0 {
		m.Go(target)

		return
	}

	m.schedule(delay, target, func() {
		m.Go(target)
	})
}

// Cancel drops the pending transition, if any. Reports whether one was dropped.
func (m *Machine) Cancel() bool {
	if m.pending == nil {
		return false
	}

	m.pending.timer.Stop()
	m.pending = nil

	return true
}

func (m *Machine) schedule(d time.Duration, target Stage, fn func()) {
	m.Cancel()

	p := &pendingTransition{target: target}
	p.timer = m.sched.AfterFunc(d, func() {
		// A stopped timer may already have queued its callback.
		if m.pending != p {
			return
		}
		m.pending = nil

		fn()
	})
	m.pending = p
}

func (m *Machine) activate(target Stage) {
	m.current = target
	m.active = true
	m.onChange(target, true)
}
