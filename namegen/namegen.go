// Package namegen produces human-readable token (name, symbol) pairs for a
// deployment batch. Symbols are distinct within one batch; nothing is
// remembered across batches.
package namegen

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrExhausted is returned when the redraw budget runs out before the batch
// reaches pairwise-distinct symbols. It condemns the batch, not the process.
var ErrExhausted = errors.New("name generation exhausted")

// TokenSpec names one token to deploy.
type TokenSpec struct {
	Name   string
	Symbol string
}

var defaultAdjectives = []string{
	"Astral", "Blazing", "Cosmic", "Crimson", "Drifting", "Electric",
	"Feral", "Gilded", "Hollow", "Iron", "Jade", "Lunar", "Mystic",
	"Nebula", "Obsidian", "Primal", "Quantum", "Radiant", "Silent",
	"Turbo", "Umbra", "Vivid", "Wild", "Zephyr",
}

var defaultNouns = []string{
	"Ape", "Badger", "Comet", "Dragon", "Ember", "Falcon", "Gecko",
	"Hydra", "Ibis", "Jackal", "Kraken", "Lynx", "Mamba", "Nova",
	"Otter", "Phoenix", "Raven", "Sphinx", "Tiger", "Viper", "Wolf",
	"Yak",
}

// Generator draws names from a bounded fragment vocabulary. Not safe for
// concurrent use; the orchestrator owns one.
type Generator struct {
	rng        *rand.Rand
	adjectives []string
	nouns      []string
	// redraw attempts allowed per requested spec before giving up
	retriesPerSpec int
}

// New returns a Generator over the default vocabulary.
func New(rng *rand.Rand) *Generator {
	return NewWithVocabulary(rng, defaultAdjectives, defaultNouns)
}

// NewWithVocabulary allows a custom fragment vocabulary, mainly for tests
// and for forcing exhaustion.
func NewWithVocabulary(rng *rand.Rand, adjectives, nouns []string) *Generator {
	return &Generator{
		rng:            rng,
		adjectives:     adjectives,
		nouns:          nouns,
		retriesPerSpec: 25,
	}
}

// Batch returns count specs with pairwise-distinct symbols, or ErrExhausted
// when the vocabulary cannot yield that many distinct symbols within the
// redraw budget.
func (g *Generator) Batch(count int) ([]TokenSpec, error) {
	if count <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", count)
	}

	specs := make([]TokenSpec, 0, count)
	seen := make(map[string]struct{}, count)
	budget := count * g.retriesPerSpec

	for len(specs) < count {
		if budget == 0 {
			return nil, fmt.Errorf("%w: %d distinct symbols after %d draws (vocabulary %dx%d)",
				ErrExhausted, len(specs), count*g.retriesPerSpec, len(g.adjectives), len(g.nouns))
		}
		budget--

		spec := g.draw()
		if _, dup := seen[spec.Symbol]; dup {
			continue
		}
		seen[spec.Symbol] = struct{}{}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (g *Generator) draw() TokenSpec {
	adj := g.adjectives[g.rng.Intn(len(g.adjectives))]
	noun := g.nouns[g.rng.Intn(len(g.nouns))]
	return TokenSpec{
		Name:   adj + " " + noun,
		Symbol: symbolFor(adj, noun),
	}
}

// symbolFor builds a ticker from the leading fragments of both words, e.g.
// "Cosmic" + "Falcon" -> "COFA".
func symbolFor(adj, noun string) string {
	return strings.ToUpper(head(adj, 2) + head(noun, 2))
}

func head(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
