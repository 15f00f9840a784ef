package transition

import "fmt"

// PunctuationTags are the POS tags whose tokens are left out of the scores without punctuation.
var PunctuationTags = map[string]bool{
	"``": true,
	"''": true,
	".":  true,
	",":  true,
	":":  true,
}

// Scores holds attachment scores as fractions in [0, 1].
type Scores struct {
	UAS          float64
	LAS          float64
	UASNoPunc    float64
	LASNoPunc    float64
	RootAccuracy float64
	// UEM and LEM are the fractions of sentences whose tokens all have the correct head
	// (and label, for LEM), punctuation excluded.
	UEM float64
	LEM float64
}

// Evaluate compares predicted trees against gold trees.
func Evaluate(sentences []Sentence, predicted, gold []*Tree) (Scores, error) {
	var result Scores
	if len(predicted) != len(gold) || len(sentences) != len(gold) {
		return result, fmt.Errorf("evaluation needs as many sentences (%d), predictions (%d) and gold trees (%d)",
			len(sentences), len(predicted), len(gold))
	}

	var (
		tokens, correctHeads, correctArcs             int
		nonPunc, correctHeadsNoPunc, correctArcsNoPunc int
		roots, correctRoots                            int
		exactUnlabeled, exactLabeled                   int
	)
	for i := range gold {
		if predicted[i].Len() != gold[i].Len() || len(sentences[i]) != gold[i].Len() {
			return result, fmt.Errorf("sentence %d: prediction has %d tokens, gold has %d",
				i, predicted[i].Len(), gold[i].Len())
		}
		unlabeledMatch, labeledMatch := true, true
		for k := 1; k <= gold[i].Len(); k++ {
			headOK := predicted[i].Head(k) == gold[i].Head(k)
			arcOK := headOK && predicted[i].Label(k) == gold[i].Label(k)
			tokens++
			if headOK {
				correctHeads++
			}
			if arcOK {
				correctArcs++
			}
			if !PunctuationTags[sentences[i][k-1].POS] {
				nonPunc++
				if headOK {
					correctHeadsNoPunc++
				} else {
					unlabeledMatch = false
				}
				if arcOK {
					correctArcsNoPunc++
				} else {
					labeledMatch = false
				}
			}
			if gold[i].Head(k) == Root {
				roots++
				if predicted[i].Head(k) == Root {
					correctRoots++
				}
			}
		}
		if unlabeledMatch {
			exactUnlabeled++
		}
		if labeledMatch {
			exactLabeled++
		}
	}

	result.UAS = fraction(correctHeads, tokens)
	result.LAS = fraction(correctArcs, tokens)
	result.UASNoPunc = fraction(correctHeadsNoPunc, nonPunc)
	result.LASNoPunc = fraction(correctArcsNoPunc, nonPunc)
	result.RootAccuracy = fraction(correctRoots, roots)
	result.UEM = fraction(exactUnlabeled, len(gold))
	result.LEM = fraction(exactLabeled, len(gold))
	return result, nil
}

func fraction(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
