package pkg

import (
	"context"
	"fmt"
	gio "io"
	"os"

	"github.com/cheggaaa/pb"
	"github.com/rs/zerolog/log"

	"nndep/pkg/io"
	"nndep/pkg/transition"
)

// parseChunkSize is the number of sentences parsed between two progress bar updates.
const parseChunkSize = 256

// Parse annotates the sentences of inputFileName with the trees predicted by the model
// and writes them to outputFileName, or to standard output if it is empty. Progress is
// reported to progress unless it is nil.
func Parse(ctx context.Context, modelFileName, inputFileName, outputFileName string, workers int, progress gio.Writer) error {
	m, err := loadModel(modelFileName)
	if err != nil {
		return err
	}
	corpus, err := io.LoadCoNLL(inputFileName)
	if err != nil {
		return fmt.Errorf("error loading data from %s: %w", inputFileName, err)
	}

	var bar *pb.ProgressBar
	if progress != nil {
		bar = pb.New(corpus.Size())
		bar.Output = progress
		bar.Start()
	}
	trees := make([]*transition.Tree, 0, corpus.Size())
	for start := 0; start < corpus.Size(); start += parseChunkSize {
		end := start + parseChunkSize
		if end > corpus.Size() {
			end = corpus.Size()
		}
		chunk, err := m.Predict(ctx, corpus.Sentences[start:end], workers)
		if err != nil {
			return err
		}
		trees = append(trees, chunk...)
		if bar != nil {
			bar.Add(len(chunk))
		}
	}
	if bar != nil {
		bar.Finish()
	}
	log.Info().Int("Sentences", corpus.Size()).Int("Tokens", corpus.Tokens()).Msg("parsed")

	if outputFileName == "" {
		return io.WriteCoNLL(os.Stdout, corpus.Sentences, trees)
	}
	return io.WriteCoNLLFile(outputFileName, corpus.Sentences, trees)
}
