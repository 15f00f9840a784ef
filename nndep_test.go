package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"nndep/pkg/io"
)

func TestTrainTestParseCommands(t *testing.T) {
	dir := t.TempDir()
	modelFile := filepath.Join(dir, "nndep.model")
	b := bytes.NewBufferString("")
	log.Logger = zerolog.New(b)

	trainCmd := TrainCommand()
	trainCmd.SetArgs(strings.Split("-i testdata/train.conll -d testdata/dev.conll -o "+modelFile+
		" -n 20 -b 16 --embedding-size 4 --hidden-size 8 --init-range 0.3 --num-precomputed 30 --eval-per-iter 5 -w 2", " "))
	require.NoError(t, trainCmd.Execute())
	out := b.String()
	require.True(t, strings.Contains(out, `"Iteration":19`))
	require.True(t, strings.Contains(out, "model saved"))
	require.False(t, strings.Contains(out, `"level":"error"`))

	testCmd := TestCommand()
	outputFile := filepath.Join(dir, "dev.parsed")
	testCmd.SetArgs([]string{"-m", modelFile, "-i", "testdata/dev.conll", "-o", outputFile})
	b.Reset()
	require.NoError(t, testCmd.Execute())
	out = b.String()
	require.True(t, strings.Contains(out, `"UAS":`))
	require.True(t, strings.Contains(out, `"Label":"nsubj"`))
	require.False(t, strings.Contains(out, `"level":"error"`))

	parseCmd := ParseCommand()
	parsedFile := filepath.Join(dir, "raw.parsed")
	parseCmd.SetArgs([]string{"-m", modelFile, "-i", "testdata/raw.conll", "-o", parsedFile, "-q"})
	require.NoError(t, parseCmd.Execute())
	parsed, err := io.LoadCoNLL(parsedFile)
	require.NoError(t, err)
	require.Equal(t, 2, parsed.Size())
	for _, tree := range parsed.Trees {
		require.True(t, tree.IsTree())
	}
}

func TestTrainCommand_MissingFlags(t *testing.T) {
	cmd := TrainCommand()
	cmd.SetArgs([]string{"-i", "testdata/train.conll"})
	cmd.SetOut(bytes.NewBufferString(""))
	cmd.SetErr(bytes.NewBufferString(""))
	require.Error(t, cmd.Execute())
}
