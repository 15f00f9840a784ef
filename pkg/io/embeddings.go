package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Embeddings is a table of pretrained word vectors.
type Embeddings struct {
	Size    int
	vectors map[string][]float64
}

func (e *Embeddings) Len() int {
	return len(e.vectors)
}

// Lookup returns the vector of word, trying the lowercased word when there is no exact match.
func (e *Embeddings) Lookup(word string) ([]float64, bool) {
	if v, ok := e.vectors[word]; ok {
		return v, true
	}
	v, ok := e.vectors[strings.ToLower(word)]
	return v, ok
}

// ReadEmbeddings reads lines of a token followed by its vector. The dimension is taken
// from the first line; later lines of another dimension are an error.
func ReadEmbeddings(r io.Reader) (*Embeddings, error) {
	e := &Embeddings{vectors: make(map[string][]float64)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if e.Size == 0 {
			e.Size = len(fields) - 1
			if e.Size == 0 {
				return nil, fmt.Errorf("line %d: no vector for %q", lineNumber, fields[0])
			}
		}
		if len(fields)-1 != e.Size {
			return nil, fmt.Errorf("line %d: expected %d values, found %d", lineNumber, e.Size, len(fields)-1)
		}
		vector := make([]float64, e.Size)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q", lineNumber, f)
			}
			vector[i] = v
		}
		e.vectors[fields[0]] = vector
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading embeddings: %w", err)
	}
	return e, nil
}

// LoadEmbeddings reads the embedding table stored at path.
func LoadEmbeddings(path string) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening embeddings: %w", err)
	}
	defer f.Close()
	e, err := ReadEmbeddings(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return e, nil
}
