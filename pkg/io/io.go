package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nndep/pkg/model"
)

// ErrMalformedModel is returned when a model file does not follow the model format.
var ErrMalformedModel = errors.New("malformed model file")

const preComputedPerLine = 100

// The header keys, in the order they are written.
var headerKeys = []string{"dict", "pos", "label", "embeddingSize", "hiddenSize", "numTokens", "preComputed"}

// SaveModel writes the dictionaries and parameters of m as text:
//
//	seven key=value header lines
//	one line per word, POS and label: the name followed by its embedding
//	W1 one column per line, b1 on one line, W2 one column per line
//	the precomputed keys, 100 per line
func SaveModel(m *model.Model, writer io.Writer) error {
	w := bufio.NewWriter(writer)
	d, n := m.Dictionaries, m.Network
	header := []int{d.Words.Size(), d.POS.Size(), d.Labels.Size(),
		n.EmbeddingSize, n.HiddenSize, model.NumTokens, len(m.PreComputed)}
	for i, key := range headerKeys {
		fmt.Fprintf(w, "%s=%d\n", key, header[i])
	}

	id := 0
	for _, dict := range []*model.Dictionary{d.Words, d.POS, d.Labels} {
		for _, name := range dict.Names {
			w.WriteString(name)
			for _, v := range n.Embedding(id) {
				w.WriteByte(' ')
				w.WriteString(formatFloat(v))
			}
			w.WriteByte('\n')
			id++
		}
	}

	writeColumns(w, n.W1.Data(), n.W1.Rows(), n.W1.Columns())
	writeColumns(w, n.B1.Data(), n.B1.Rows(), n.B1.Columns())
	writeColumns(w, n.W2.Data(), n.W2.Rows(), n.W2.Columns())

	for i, key := range m.PreComputed {
		if i > 0 {
			if i%preComputedPerLine == 0 {
				w.WriteByte('\n')
			} else {
				w.WriteByte(' ')
			}
		}
		w.WriteString(strconv.Itoa(key))
	}
	if len(m.PreComputed) > 0 {
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing model: %w", err)
	}
	return nil
}

// writeColumns prints a row-major rows x cols matrix one column per line.
func writeColumns(w *bufio.Writer, data []float64, rows, cols int) {
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if i > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(formatFloat(data[i*cols+j]))
		}
		w.WriteByte('\n')
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LoadModel reads a model written by SaveModel. Any malformed or missing line fails the
// whole load. The returned model must be initialized before parsing.
func LoadModel(input io.Reader) (*model.Model, error) {
	r := newLineReader(input)
	header, err := r.header()
	if err != nil {
		return nil, err
	}
	numWords, numPOS, numLabels := header[0], header[1], header[2]
	config := model.NetworkConfig{EmbeddingSize: header[3], HiddenSize: header[4]}
	if header[5] != model.NumTokens {
		return nil, fmt.Errorf("%w: numTokens is %d, the feature template has %d", ErrMalformedModel, header[5], model.NumTokens)
	}
	if numLabels < 2 {
		return nil, fmt.Errorf("%w: a model needs at least the null and root labels", ErrMalformedModel)
	}
	if config.EmbeddingSize == 0 || config.HiddenSize == 0 {
		return nil, fmt.Errorf("%w: embedding and hidden sizes must be positive", ErrMalformedModel)
	}

	network := model.NewNetwork(config, numWords+numPOS+numLabels, 2*numLabels-1)
	dicts := &model.Dictionaries{}
	id := 0
	for _, dict := range []struct {
		size   int
		target **model.Dictionary
	}{{numWords, &dicts.Words}, {numPOS, &dicts.POS}, {numLabels, &dicts.Labels}} {
		names := make([]string, dict.size)
		for i := range names {
			names[i], err = r.entry(network.Embedding(id))
			if err != nil {
				return nil, err
			}
			id++
		}
		*dict.target = model.NewDictionary(names...)
		if (*dict.target).Size() != dict.size {
			return nil, fmt.Errorf("%w: duplicate dictionary entries before line %d", ErrMalformedModel, r.line)
		}
	}
	if err := dicts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedModel, err)
	}

	for _, p := range []struct {
		data       []float64
		rows, cols int
	}{
		{network.W1.Data(), network.W1.Rows(), network.W1.Columns()},
		{network.B1.Data(), network.B1.Rows(), network.B1.Columns()},
		{network.W2.Data(), network.W2.Rows(), network.W2.Columns()},
	} {
		if err := r.columns(p.data, p.rows, p.cols); err != nil {
			return nil, err
		}
	}

	preComputed, err := r.keys(header[6], dicts.Size()*model.NumTokens)
	if err != nil {
		return nil, err
	}
	return &model.Model{Dictionaries: dicts, Network: network, PreComputed: preComputed}, nil
}

// SaveModelFile writes m to path, replacing any existing file.
func SaveModelFile(m *model.Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating model file: %w", err)
	}
	if err := SaveModel(m, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadModelFile reads the model stored at path.
func LoadModelFile(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening model file: %w", err)
	}
	defer f.Close()
	m, err := LoadModel(f)
	if err != nil {
		return nil, fmt.Errorf("error reading model %s: %w", path, err)
	}
	return m, nil
}

type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &lineReader{scanner: scanner}
}

func (r *lineReader) next() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("error reading model: %w", err)
		}
		return "", fmt.Errorf("%w: unexpected end of file after line %d", ErrMalformedModel, r.line)
	}
	r.line++
	return r.scanner.Text(), nil
}

func (r *lineReader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedModel, r.line, fmt.Sprintf(format, args...))
}

// header reads the seven header values. Every key must be present, in order.
func (r *lineReader) header() ([]int, error) {
	values := make([]int, len(headerKeys))
	for i, want := range headerKeys {
		line, err := r.next()
		if err != nil {
			return nil, err
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, r.errorf("expected %s=<value>, found %q", want, line)
		}
		if key := strings.TrimSpace(line[:eq]); key != want {
			return nil, r.errorf("expected header key %s, found %s", want, key)
		}
		v, err := strconv.Atoi(strings.TrimSpace(line[eq+1:]))
		if err != nil || v < 0 {
			return nil, r.errorf("invalid value for %s: %q", want, line[eq+1:])
		}
		values[i] = v
	}
	return values, nil
}

// entry reads a dictionary line into dst and returns the name. The name is everything
// before the last len(dst) fields.
func (r *lineReader) entry(dst []float64) (string, error) {
	line, err := r.next()
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.TrimRight(line, " "), " ")
	if len(parts) < len(dst)+1 {
		return "", r.errorf("expected a name and %d values", len(dst))
	}
	split := len(parts) - len(dst)
	if err := r.parseFloats(parts[split:], dst); err != nil {
		return "", err
	}
	return strings.Join(parts[:split], " "), nil
}

// columns reads a row-major rows x cols matrix printed one column per line.
func (r *lineReader) columns(data []float64, rows, cols int) error {
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		line, err := r.next()
		if err != nil {
			return err
		}
		if err := r.parseFloats(strings.Fields(line), column); err != nil {
			return err
		}
		for i, v := range column {
			data[i*cols+j] = v
		}
	}
	return nil
}

func (r *lineReader) parseFloats(fields []string, dst []float64) error {
	if len(fields) != len(dst) {
		return r.errorf("expected %d values, found %d", len(dst), len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r.errorf("invalid value %q", f)
		}
		dst[i] = v
	}
	return nil
}

// keys reads count precomputed keys, each below limit.
func (r *lineReader) keys(count, limit int) ([]int, error) {
	keys := make([]int, 0, count)
	for len(keys) < count {
		line, err := r.next()
		if err != nil {
			return nil, err
		}
		for _, f := range strings.Fields(line) {
			k, err := strconv.Atoi(f)
			if err != nil || k < 0 || k >= limit {
				return nil, r.errorf("invalid precomputed key %q", f)
			}
			keys = append(keys, k)
		}
	}
	if len(keys) != count {
		return nil, r.errorf("expected %d precomputed keys, found %d", count, len(keys))
	}
	return keys, nil
}
