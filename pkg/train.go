package pkg

import (
	"context"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/rs/zerolog/log"

	"nndep/pkg/io"
	"nndep/pkg/model"
	"nndep/pkg/transition"
)

type TrainingParameters struct {
	WordCutOff     int
	InitRange      float64
	MaxIter        int
	BatchSize      int
	AdaAlpha       float64
	AdaEps         float64
	RegParameter   float64
	DropProb       float64
	NumPreComputed int
	// EvalPerIter is the number of iterations between two evaluations on the dev set.
	EvalPerIter int
	// ClearGradientsPerIter resets the AdaGrad history every so many iterations, never if zero.
	ClearGradientsPerIter int
	ReportInterval        int
	RndSeed               uint64
	Workers               int
	// SaveIntermediate writes the model every time the dev UAS improves.
	SaveIntermediate bool
	EmbeddingFile    string
}

func DefaultTrainingParameters() TrainingParameters {
	return TrainingParameters{
		WordCutOff:       1,
		InitRange:        0.01,
		MaxIter:          20000,
		BatchSize:        10000,
		AdaAlpha:         0.01,
		AdaEps:           1e-6,
		RegParameter:     1e-8,
		DropProb:         0.5,
		NumPreComputed:   100000,
		EvalPerIter:      100,
		ReportInterval:   1,
		RndSeed:          42,
		SaveIntermediate: true,
	}
}

func DefaultNetworkConfig() model.NetworkConfig {
	return model.NetworkConfig{EmbeddingSize: 50, HiddenSize: 200}
}

var errNoExamples = errors.New("no training examples could be generated")

type Trainer struct {
	params      TrainingParameters
	model       *model.Model
	optimizer   *model.AdaGrad
	dataset     *io.DataSet
	preComputed map[int]bool
	rnd         *mrand.Rand
}

// NewTrainer prepares the optimizer and the example batches of m. The model must have
// been initialized.
func NewTrainer(m *model.Model, examples []*model.Example, params TrainingParameters) *Trainer {
	rnd := mrand.New(mrand.NewSource(int64(params.RndSeed)))
	preComputed := make(map[int]bool, len(m.PreComputed))
	for _, key := range m.PreComputed {
		preComputed[key] = true
	}
	return &Trainer{
		params:      params,
		model:       m,
		optimizer:   model.NewAdaGrad(m.Network, params.AdaAlpha, params.AdaEps),
		dataset:     io.NewDataSet(examples, params.BatchSize, rnd),
		preComputed: preComputed,
		rnd:         rnd,
	}
}

// Step trains on the next batch and returns its cost.
func (t *Trainer) Step() *model.Cost {
	batch := t.dataset.NextRandom()
	cost := t.model.Network.ComputeCost(batch, t.preComputed, model.CostParameters{
		RegParameter: t.params.RegParameter,
		DropProb:     t.params.DropProb,
		Workers:      t.params.Workers,
	}, t.rnd.Float64)
	t.optimizer.Update(t.model.Network, cost.Gradients)
	return cost
}

// Evaluate rebuilds the precomputed cache from the current parameters and scores the
// parses of corpus.
func (t *Trainer) Evaluate(ctx context.Context, corpus *io.Corpus) (transition.Scores, error) {
	t.model.Network.PreCompute(t.model.PreComputed)
	predicted, err := t.model.Predict(ctx, corpus.Sentences, t.params.Workers)
	if err != nil {
		return transition.Scores{}, err
	}
	return transition.Evaluate(corpus.Sentences, predicted, corpus.Trees)
}

// Train learns a parser from the trees of trainFile and writes it to modelFile. When
// devFile is set the dev UAS is logged during training and the best model is kept.
func Train(ctx context.Context, trainFile, devFile, modelFile string, config model.NetworkConfig, params TrainingParameters) error {
	trainSet, err := io.LoadCoNLL(trainFile)
	if err != nil {
		return fmt.Errorf("error reading training data: %w", err)
	}
	logTreeStats("train", trainSet)

	var devSet *io.Corpus
	if devFile != "" {
		devSet, err = io.LoadCoNLL(devFile)
		if err != nil {
			return fmt.Errorf("error reading dev data: %w", err)
		}
		logTreeStats("dev", devSet)
	}

	dicts, err := model.BuildDictionaries(trainSet.Sentences, trainSet.Trees, params.WordCutOff)
	if err != nil {
		return fmt.Errorf("error building dictionaries: %w", err)
	}
	log.Info().
		Int("Words", dicts.Words.Size()).
		Int("POS", dicts.POS.Size()).
		Int("Labels", dicts.Labels.Size()).
		Str("RootLabel", dicts.RootLabel()).
		Msg("dictionaries")

	system := transition.NewArcStandard(dicts.ArcLabels())
	network := model.NewNetwork(config, dicts.Size(), system.NumTransitions())
	network.Init(params.InitRange, rand.NewLockedRand(params.RndSeed))
	if params.EmbeddingFile != "" {
		embeddings, err := io.LoadEmbeddings(params.EmbeddingFile)
		if err != nil {
			return err
		}
		initEmbeddings(dicts, network, embeddings)
	}

	examples, counts, stats := io.GenerateExamples(dicts, system, trainSet.Sentences, trainSet.Trees)
	log.Info().
		Int("Trees", stats.Trees).
		Int("Examples", stats.Examples).
		Int("NonProjective", stats.NonProjective).
		Int("Skipped", stats.Skipped).
		Msg("training examples")
	if len(examples) == 0 {
		return errNoExamples
	}

	m := &model.Model{
		Dictionaries: dicts,
		Network:      network,
		PreComputed:  io.SelectPreComputed(counts, params.NumPreComputed),
	}
	if err := m.Initialize(false); err != nil {
		return err
	}
	log.Info().Int("PreComputed", len(m.PreComputed)).Int("Transitions", system.NumTransitions()).Msg("model initialized")

	t := NewTrainer(m, examples, params)
	bestUAS := -1.0
	evaluate := func(ctx context.Context, iter int, save bool) error {
		start := time.Now()
		scores, err := t.Evaluate(ctx, devSet)
		if err != nil {
			return fmt.Errorf("error evaluating dev set: %w", err)
		}
		log.Info().
			Int("Iteration", iter).
			Float64("UAS", scores.UAS).
			Float64("LAS", scores.LAS).
			Dur("Elapsed", time.Since(start)).
			Msg("dev evaluation")
		if save && scores.UAS > bestUAS {
			bestUAS = scores.UAS
			if err := io.SaveModelFile(m, modelFile); err != nil {
				return err
			}
			log.Info().Float64("UAS", bestUAS).Str("File", modelFile).Msg("model saved")
		}
		return nil
	}

	start := time.Now()
	for iter := 0; iter < params.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		cost := t.Step()
		if params.ReportInterval > 0 && iter%params.ReportInterval == 0 {
			log.Info().
				Int("Iteration", iter).
				Float64("Loss", cost.Loss).
				Float64("Accuracy", cost.Accuracy).
				Dur("Elapsed", time.Since(start)).
				Msg("")
		}
		if devSet != nil && params.EvalPerIter > 0 && iter%params.EvalPerIter == 0 {
			if err := evaluate(ctx, iter, params.SaveIntermediate); err != nil {
				return err
			}
		}
		if params.ClearGradientsPerIter > 0 && iter%params.ClearGradientsPerIter == 0 {
			t.optimizer.Reset()
		}
	}

	if devSet != nil {
		// the final model is kept unless an intermediate one scored higher
		return evaluate(ctx, params.MaxIter, true)
	}
	if err := io.SaveModelFile(m, modelFile); err != nil {
		return err
	}
	log.Info().Str("File", modelFile).Msg("model saved")
	return nil
}

// initEmbeddings copies the pretrained vector of every word found in embeddings into its
// row. When the dimensions differ only the common prefix is copied.
func initEmbeddings(dicts *model.Dictionaries, network *model.Network, embeddings *io.Embeddings) {
	if embeddings.Size != network.EmbeddingSize {
		log.Warn().
			Int("Pretrained", embeddings.Size).
			Int("Configured", network.EmbeddingSize).
			Msg("embedding size mismatch, copying the common dimensions")
	}
	found := 0
	for id, word := range dicts.Words.Names {
		if vector, ok := embeddings.Lookup(word); ok {
			copy(network.Embedding(id), vector)
			found++
		}
	}
	log.Info().
		Int("Found", found).
		Int("Words", dicts.Words.Size()).
		Float64("Coverage", float64(found)/float64(dicts.Words.Size())).
		Msg("pretrained embeddings")
}
