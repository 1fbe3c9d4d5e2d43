/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	defaultParticles = 50
	maxParticles     = 500
)

// Particle describes one floating speck of gold behind the book.
type Particle struct {
	Left      float64 `json:"left"`     // percent of container width
	Delay     float64 `json:"delay"`    // seconds
	Duration  float64 `json:"duration"` // seconds
	Size      float64 `json:"size"`     // pixels
	Hue       float64 `json:"hue"`
	Lightness float64 `json:"lightness"`
	Color     string  `json:"color"`
}

func (p Particle) color() colorful.Color {
	return colorful.Hsl(p.Hue, 0.8, p.Lightness/100)
}

func generateParticles(n int, rng *rand.Rand) []Particle {
	particles := make([]Particle, n)

	for i := range particles {
		p := Particle{
			Left:      rng.Float64() * 100,
			Delay:     rng.Float64() * 8,
			Duration:  6 + rng.Float64()*4,
			Size:      2 + rng.Float64()*4,
			Hue:       45 + rng.Float64()*15,
			Lightness: 50 + rng.Float64()*20,
		}
		p.Color = p.color().Clamped().Hex()

		particles[i] = p
	}

	return particles
}
