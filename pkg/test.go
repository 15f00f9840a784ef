package pkg

import (
	"context"
	"fmt"
	gio "io"
	"os"
	"sort"
	"time"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"

	"nndep/pkg/io"
	"nndep/pkg/model"
	"nndep/pkg/transition"
)

type NoopWriter struct{}

func (x NoopWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// loadModel reads a model and builds its transition system and precomputed cache.
func loadModel(modelFileName string) (*model.Model, error) {
	m, err := io.LoadModelFile(modelFileName)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := m.Initialize(true); err != nil {
		return nil, fmt.Errorf("error initializing model from %s: %w", modelFileName, err)
	}
	log.Info().
		Int("PreComputed", len(m.PreComputed)).
		Dur("Elapsed", time.Since(start)).
		Msg("model loaded")
	return m, nil
}

// Test parses the sentences of inputFileName, logs the attachment scores against their
// trees and, when outputFileName is set, writes the predicted trees there.
func Test(ctx context.Context, modelFileName, inputFileName, outputFileName string, workers int) (transition.Scores, error) {
	m, err := loadModel(modelFileName)
	if err != nil {
		return transition.Scores{}, err
	}
	corpus, err := io.LoadCoNLL(inputFileName)
	if err != nil {
		return transition.Scores{}, fmt.Errorf("error loading data from %s: %w", inputFileName, err)
	}
	logTreeStats("test", corpus)
	if corpus.Size() == 0 {
		return transition.Scores{}, fmt.Errorf("no sentences to test in %s", inputFileName)
	}

	var outputWriter gio.Writer
	if outputFileName != "" {
		outputFile, err := os.Create(outputFileName)
		if err != nil {
			return transition.Scores{}, fmt.Errorf("error opening output file %s: %w", outputFileName, err)
		}
		defer outputFile.Close()
		outputWriter = outputFile
	} else {
		outputWriter = NoopWriter{}
	}
	return testInternal(ctx, m, corpus, outputWriter, workers)
}

func testInternal(ctx context.Context, m *model.Model, corpus *io.Corpus, outputWriter gio.Writer, workers int) (transition.Scores, error) {
	start := time.Now()
	predicted, err := m.Predict(ctx, corpus.Sentences, workers)
	if err != nil {
		return transition.Scores{}, err
	}
	elapsed := time.Since(start)
	log.Info().
		Int("Sentences", corpus.Size()).
		Dur("Elapsed", elapsed).
		Float64("SentencesPerSecond", float64(corpus.Size())/elapsed.Seconds()).
		Msg("parsed")

	if err := io.WriteCoNLL(outputWriter, corpus.Sentences, predicted); err != nil {
		return transition.Scores{}, err
	}

	scores, err := transition.Evaluate(corpus.Sentences, predicted, corpus.Trees)
	if err != nil {
		return transition.Scores{}, err
	}
	evaluator := newLabelEvaluator()
	for i := range predicted {
		evaluator.EvaluatePrediction(predicted[i], corpus.Trees[i])
	}
	evaluator.LogMetrics()
	log.Info().
		Float64("UAS", scores.UAS).
		Float64("LAS", scores.LAS).
		Float64("UASNoPunc", scores.UASNoPunc).
		Float64("LASNoPunc", scores.LASNoPunc).
		Float64("RootAccuracy", scores.RootAccuracy).
		Float64("UEM", scores.UEM).
		Float64("LEM", scores.LEM).
		Msg("")
	return scores, nil
}

// labelEvaluator counts, per dependency label, the arcs found with the right head and label.
type labelEvaluator struct {
	metrics map[string]*stats.ClassMetrics
}

func newLabelEvaluator() *labelEvaluator {
	return &labelEvaluator{metrics: map[string]*stats.ClassMetrics{}}
}

func (l *labelEvaluator) counter(label string) *stats.ClassMetrics {
	m, ok := l.metrics[label]
	if !ok {
		m = stats.NewMetricCounter()
		l.metrics[label] = m
	}
	return m
}

func (l *labelEvaluator) EvaluatePrediction(predicted, gold *transition.Tree) {
	for k := 1; k <= gold.Len(); k++ {
		if gold.Head(k) == transition.None {
			continue
		}
		goldLabel, predictedLabel := gold.Label(k), predicted.Label(k)
		if gold.Head(k) == predicted.Head(k) && goldLabel == predictedLabel {
			l.counter(goldLabel).IncTruePos()
			continue
		}
		l.counter(goldLabel).IncFalseNeg()
		l.counter(predictedLabel).IncFalsePos()
	}
}

func (l *labelEvaluator) LogMetrics() {
	// Sort labels for deterministic output
	for _, label := range sortClasses(l.metrics) {
		result := l.metrics[label]
		log.Info().Str("Label", label).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("FN", result.FalseNeg).
			Float64("Precision", result.Precision()).
			Float64("Recall", result.Recall()).
			Float64("F1", result.F1Score()).
			Msg("")
	}
	microF1, macroF1 := computeOverallF1(l.metrics)
	log.Info().Float64("MacroF1", macroF1).Float64("MicroF1", microF1).Msg("")
}

// computeOverallF1 returns the micro and macro averaged F1 over all labels.
func computeOverallF1(metrics map[string]*stats.ClassMetrics) (float64, float64) {
	if len(metrics) == 0 {
		return 0, 0
	}
	macroF1 := 0.0
	for _, metric := range metrics {
		macroF1 += metric.F1Score()
	}
	macroF1 /= float64(len(metrics))

	micro := stats.NewMetricCounter()
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
	}
	return micro.F1Score(), macroF1
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}
