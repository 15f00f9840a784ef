package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"nndep/pkg/transition"
)

// ErrNoLegalTransition means decoding reached a configuration where no transition
// could be applied, which a well formed model never does.
var ErrNoLegalTransition = errors.New("no legal transition")

// Parse greedily builds the tree of a sentence in exactly 2n transitions, each time
// applying the legal transition with the highest score. Ties go to the transition that
// comes first in the transition set.
func (m *Model) Parse(sentence transition.Sentence) (*transition.Tree, error) {
	if m.System == nil {
		return nil, ErrNotInitialized
	}
	c := m.System.Initial(sentence)
	for k := 0; k < 2*len(sentence); k++ {
		scores := m.Network.Scores(m.Dictionaries.Features(c))
		best := -1
		optScore := math.Inf(-1)
		for j, t := range m.System.Transitions {
			if scores[j] > optScore && m.System.CanApply(c, t) {
				optScore = scores[j]
				best = j
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("%w at step %d: %s", ErrNoLegalTransition, k, c)
		}
		next, err := m.System.Apply(c, m.System.Transitions[best])
		if err != nil {
			return nil, err
		}
		c = next
	}
	return c.Tree, nil
}

// Predict parses sentences with the given number of goroutines (GOMAXPROCS if zero).
// It stops at the first error or when ctx is done.
func (m *Model) Predict(ctx context.Context, sentences []transition.Sentence, workers int) ([]*transition.Tree, error) {
	if m.System == nil {
		return nil, ErrNotInitialized
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	trees := make([]*transition.Tree, len(sentences))
	indices := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(indices)
		for i := range sentences {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indices {
				if err := ctx.Err(); err != nil {
					return err
				}
				tree, err := m.Parse(sentences[i])
				if err != nil {
					return fmt.Errorf("sentence %d: %w", i, err)
				}
				trees[i] = tree
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}
