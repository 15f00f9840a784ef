package model

import (
	"errors"
	"fmt"

	"nndep/pkg/transition"
)

var ErrNotInitialized = errors.New("model has not been loaded or trained")

// Model is a trained parser: the dictionaries, the network parameters and the keys whose
// hidden layer contribution is precomputed. Once initialized it is only read, so any
// number of goroutines may parse with it.
type Model struct {
	Dictionaries *Dictionaries
	Network      *Network
	PreComputed  []int

	System *transition.ArcStandard
}

// Initialize builds the transition system from the label dictionary and, when
// preCompute is set, the cache of precomputed keys. It must be called after a model is
// loaded and before parsing.
func (m *Model) Initialize(preCompute bool) error {
	if m.Dictionaries == nil || m.Network == nil {
		return ErrNotInitialized
	}
	system := transition.NewArcStandard(m.Dictionaries.ArcLabels())
	if system.NumTransitions() != m.Network.NumTransitions {
		return fmt.Errorf("network scores %d transitions, labels define %d",
			m.Network.NumTransitions, system.NumTransitions())
	}
	if m.Dictionaries.Size() != m.Network.E.Rows() {
		return fmt.Errorf("network has %d embeddings for %d dictionary entries",
			m.Network.E.Rows(), m.Dictionaries.Size())
	}
	m.System = system
	if preCompute {
		m.Network.PreCompute(m.PreComputed)
	} else {
		m.Network.DropCache()
	}
	return nil
}
