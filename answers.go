/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"math/rand/v2"
)

var ErrEmptyPool = errors.New("answer pool is empty")

// Answer is a single entry from the pool, along with its 1-based ordinal.
type Answer struct {
	Text   string `json:"text"`
	Number int    `json:"number"`
}

var defaultAnswers = []string{
	"Absolutely.",
	"Ask again tomorrow.",
	"Be patient.",
	"Count on it.",
	"Don't bet on it.",
	"Follow your instincts.",
	"It is already decided.",
	"Let it go.",
	"Look closer.",
	"Not yet.",
	"Now is the time.",
	"Only if you laugh about it.",
	"Proceed with caution.",
	"The answer is within you.",
	"Trust the process.",
	"Unlikely, but possible.",
	"Wait for a sign.",
	"Yes, but not how you think.",
	"You already know.",
	"You'll need help with that.",
}

// Selector returns answers from a fixed pool without repeating one until
// every answer in the pool has been shown.
type Selector struct {
	pool []string
	used map[int]bool
	rng  *rand.Rand
}

func newSelector(pool []string, rng *rand.Rand) (*Selector, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Selector{
		pool: pool,
		used: make(map[int]bool, len(pool)),
		rng:  rng,
	}, nil
}

// Pick starts a new cycle once the pool is exhausted, then returns a random
// answer not yet shown in the current cycle.
func (s *Selector) Pick() Answer {
	if len(s.used) >= len(s.pool) {
		s.Reset()
	}

	available := make([]int, 0, len(s.pool)-len(s.used))
	for i := range s.pool {
		if !s.used[i] {
			available = append(available, i)
		}
	}

	index := available[s.rng.IntN(len(available))]
	s.used[index] = true

	return Answer{
		Text:   s.pool[index],
		Number: index + 1,
	}
}

func (s *Selector) Reset() {
	clear(s.used)
}

// Remaining is the number of picks left before the cycle resets.
func (s *Selector) Remaining() int {
	return len(s.pool) - len(s.used)
}

func (s *Selector) Size() int {
	return len(s.pool)
}
