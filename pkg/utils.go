package pkg

import (
	"github.com/rs/zerolog/log"

	"nndep/pkg/io"
)

// TreeStats describes the trees of a corpus.
type TreeStats struct {
	Trees         int
	Tokens        int
	NonTrees      int
	NonProjective int
}

func computeTreeStats(corpus *io.Corpus) TreeStats {
	s := TreeStats{Trees: corpus.Size(), Tokens: corpus.Tokens()}
	for _, tree := range corpus.Trees {
		if !tree.IsTree() {
			s.NonTrees++
		} else if !tree.IsProjective() {
			s.NonProjective++
		}
	}
	return s
}

func logTreeStats(name string, corpus *io.Corpus) {
	s := computeTreeStats(corpus)
	log.Info().
		Str("Corpus", name).
		Int("Trees", s.Trees).
		Int("Tokens", s.Tokens).
		Int("NonTrees", s.NonTrees).
		Int("NonProjective", s.NonProjective).
		Msg("")
}
