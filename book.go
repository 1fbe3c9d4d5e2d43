/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"math/rand/v2"
)

// ErrIgnored is returned when a trigger does not apply to the active stage.
var ErrIgnored = errors.New("trigger ignored")

type Clip string

const (
	ClipOpen   Clip = "open"
	ClipReveal Clip = "reveal"
)

// Player plays a sound clip. Failures never affect the book's state.
type Player interface {
	Play(clip Clip) error
}

// Presenter receives every visible change to the book.
type Presenter interface {
	Stage(stage Stage, active bool)
	Opening(opening bool)
	Answer(answer Answer, replay bool)
	Muted(muted bool)
}

const (
	KeyEnter  = "Enter"
	KeySpace  = " "
	KeyEscape = "Escape"
)

// Snapshot is the full visible state of a book, sent to late joiners.
type Snapshot struct {
	Stage     Stage
	Active    bool
	Opening   bool
	Muted     bool
	Answer    *Answer
	Particles []Particle
}

// Book owns all mutable state of a single magic book. It is not safe for
// concurrent use; every method, including scheduled callbacks, must run on
// the goroutine that owns it.
type Book struct {
	cfg       *Config
	selector  *Selector
	machine   *Machine
	player    Player
	view      Presenter
	muted     bool
	opening   bool
	last      *Answer
	particles []Particle
}

func newBook(cfg *Config, pool []string, sched Scheduler, player Player, view Presenter, rng *rand.Rand) (*Book, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	selector, err := newSelector(pool, rng)
	if err != nil {
		return nil, err
	}

	b := &Book{
		cfg:       cfg,
		selector:  selector,
		player:    player,
		view:      view,
		muted:     cfg.muted,
		particles: generateParticles(cfg.particles, rng),
	}

	b.machine = newMachine(sched, cfg.settleDelay, view.Stage)

	return b, nil
}

// Open starts the opening effect on the cover and moves to the instructions
// once it has played.
func (b *Book) Open() error {
	if !b.machine.Is(StageCover) || b.opening {
		return ErrIgnored
	}

	b.play(ClipOpen)

	b.opening = true
	b.view.Opening(true)

	b.machine.GoAfter(b.cfg.openDelay, StageInstruction)

	return nil
}

func (b *Book) Reveal() error {
	if !b.machine.Is(StageInstruction) {
		return ErrIgnored
	}

	b.play(ClipReveal)
	b.show(false)

	b.machine.Go(StageAnswer)

	return nil
}

func (b *Book) Again() error {
	if !b.machine.Is(StageAnswer) {
		return ErrIgnored
	}

	b.play(ClipReveal)
	b.show(true)

	return nil
}

// Reset returns to the cover from anywhere, dropping any pending transition.
func (b *Book) Reset() {
	b.play(ClipOpen)

	if b.opening {
		b.opening = false
		b.view.Opening(false)
	}

	b.machine.Go(StageCover)
}

func (b *Book) ToggleMute() bool {
	b.muted = !b.muted
	b.view.Muted(b.muted)

	return b.muted
}

// Key maps confirm keys to the active stage's primary trigger and the
// cancel key to Reset.
func (b *Book) Key(key string) error {
	switch key {
	case KeyEnter, KeySpace, "Space", "enter", "space":
	case KeyEscape, "Esc", "esc":
		b.Reset()

		return nil
	default:
		return ErrIgnored
	}

	stage, ok := b.machine.Active()
	if !ok {
		return ErrIgnored
	}

	switch stage {
	case StageCover:
		return b.Open()
	case StageInstruction:
		return b.Reveal()
	case StageAnswer:
		return b.Again()
	}

	return ErrIgnored
}

func (b *Book) Snapshot() Snapshot {
	stage, active := b.machine.Active()

	return Snapshot{
		Stage:     stage,
		Active:    active,
		Opening:   b.opening,
		Muted:     b.muted,
		Answer:    b.last,
		Particles: b.particles,
	}
}

func (b *Book) Pending() (Stage, bool) {
	return b.machine.Pending()
}

func (b *Book) Muted() bool {
	return b.muted
}

// Close cancels any pending transition.
func (b *Book) Close() {
	b.machine.Cancel()
}

func (b *Book) show(replay bool) {
	answer := b.selector.Pick()
	b.last = &answer

	b.view.Answer(answer, replay)
}

func (b *Book) play(clip Clip) {
	if b.muted || b.player == nil {
		return
	}

	if err := b.player.Play(clip); err != nil {
		logf(b.cfg, "AUDIO: Failed to play %s: %v", clip, err)
	}
}
