package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nndep/pkg"

	"github.com/spf13/cobra"
)

func TrainCommand() *cobra.Command {

	var trainFile string
	var devFile string
	var outputFile string
	trainingParameters := pkg.DefaultTrainingParameters()
	modelParameters := pkg.DefaultNetworkConfig()

	var cmd = &cobra.Command{
		Use:   "train -i trainFile [-d devFile] -o modelFile",
		Short: "Trains a new parser on the provided treebank and saves the trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Train(cmd.Context(), trainFile, devFile, outputFile, modelParameters, trainingParameters)
		},
	}

	cmd.Flags().StringVarP(&trainFile, "train-file", "i", "", "name of the CoNLL-X train file")
	cmd.Flags().StringVarP(&devFile, "dev-file", "d", "", "name of the CoNLL-X dev file (optional)")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "name of the file to save model to.")
	cmd.Flags().StringVarP(&trainingParameters.EmbeddingFile, "embedding-file", "e", "", "pretrained word embeddings (optional)")
	cmd.Flags().IntVarP(&trainingParameters.WordCutOff, "word-cutoff", "", trainingParameters.WordCutOff, "minimum frequency of the words kept in the dictionary")
	cmd.Flags().Float64VarP(&trainingParameters.InitRange, "init-range", "", trainingParameters.InitRange, "parameters are initialized uniformly in [-r, r]")
	cmd.Flags().IntVarP(&trainingParameters.MaxIter, "max-iter", "n", trainingParameters.MaxIter, "number of training iterations")
	cmd.Flags().IntVarP(&trainingParameters.BatchSize, "batch-size", "b", trainingParameters.BatchSize, "batch size")
	cmd.Flags().Float64VarP(&trainingParameters.AdaAlpha, "ada-alpha", "l", trainingParameters.AdaAlpha, "AdaGrad learning rate")
	cmd.Flags().Float64VarP(&trainingParameters.AdaEps, "ada-eps", "", trainingParameters.AdaEps, "AdaGrad epsilon")
	cmd.Flags().Float64VarP(&trainingParameters.RegParameter, "reg-parameter", "", trainingParameters.RegParameter, "L2 regularization weight")
	cmd.Flags().Float64VarP(&trainingParameters.DropProb, "dropout-probability", "", trainingParameters.DropProb, "probability of dropping a hidden unit")
	cmd.Flags().IntVarP(&trainingParameters.NumPreComputed, "num-precomputed", "", trainingParameters.NumPreComputed, "number of precomputed feature keys")
	cmd.Flags().IntVarP(&trainingParameters.EvalPerIter, "eval-per-iter", "", trainingParameters.EvalPerIter, "iterations between two dev evaluations")
	cmd.Flags().IntVarP(&trainingParameters.ClearGradientsPerIter, "clear-gradients-per-iter", "", trainingParameters.ClearGradientsPerIter, "iterations between two AdaGrad resets (0 never resets)")
	cmd.Flags().IntVarP(&trainingParameters.ReportInterval, "report-interval", "r", trainingParameters.ReportInterval, "loss report interval")
	cmd.Flags().Uint64VarP(&trainingParameters.RndSeed, "random-seed", "x", trainingParameters.RndSeed, "random seed")
	cmd.Flags().IntVarP(&trainingParameters.Workers, "workers", "w", 0, "number of goroutines computing gradients (0 uses all CPUs)")
	cmd.Flags().BoolVarP(&trainingParameters.SaveIntermediate, "save-intermediate", "", trainingParameters.SaveIntermediate, "save the model whenever the dev UAS improves")

	cmd.Flags().IntVarP(&modelParameters.EmbeddingSize, "embedding-size", "", modelParameters.EmbeddingSize, "size of word, POS and label embeddings")
	cmd.Flags().IntVarP(&modelParameters.HiddenSize, "hidden-size", "", modelParameters.HiddenSize, "size of the hidden layer")

	_ = cmd.MarkFlagRequired("train-file")
	_ = cmd.MarkFlagRequired("output-file")

	return cmd
}

func TestCommand() *cobra.Command {
	var modelFile string
	var inputFile string
	var outputFile string
	var workers int

	var cmd = &cobra.Command{
		Use:   "test -m modelFile -i testFile [-o outputFile]",
		Short: "Parses the provided treebank with the model, reports the attachment scores and optionally writes the parses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := pkg.Test(cmd.Context(), modelFile, inputFile, outputFile, workers)
			return err
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of model to test")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of the CoNLL-X test file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of parsing goroutines (0 uses all CPUs)")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func ParseCommand() *cobra.Command {
	var modelFile string
	var inputFile string
	var outputFile string
	var workers int
	var quiet bool

	var cmd = &cobra.Command{
		Use:   "parse -m modelFile -i inputFile [-o outputFile]",
		Short: "Parses POS tagged sentences in CoNLL-X format and writes them with their dependency trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := cmd.ErrOrStderr()
			if quiet {
				progress = nil
			}
			return pkg.Parse(cmd.Context(), modelFile, inputFile, outputFile, workers, progress)
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of the model")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of the CoNLL-X input file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional, uses stdout if not present)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of parsing goroutines (0 uses all CPUs)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show a progress bar")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "nndep", PersistentPreRun: setupLogging}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(TrainCommand())
	Main.AddCommand(TestCommand())
	Main.AddCommand(ParseCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := Main.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("")
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		panic("Invalid logging level specified")
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		panic("Invalid log format specified")

	}

}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
