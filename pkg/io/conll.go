package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nndep/pkg/transition"
)

// CoNLL-X columns read and written by the parser.
const (
	idColumn     = 0
	formColumn   = 1
	posColumn    = 4
	headColumn   = 6
	deprelColumn = 7
	numColumns   = 10
)

// Corpus is a list of sentences with their trees. Tokens without a head (HEAD is "_")
// have a None head, so corpora without annotation can be read for parsing.
type Corpus struct {
	Sentences []transition.Sentence
	Trees     []*transition.Tree
}

func (c *Corpus) Size() int {
	return len(c.Sentences)
}

// Tokens returns the number of tokens over all sentences.
func (c *Corpus) Tokens() int {
	n := 0
	for _, s := range c.Sentences {
		n += len(s)
	}
	return n
}

// ReadCoNLL reads sentences separated by blank lines, one token per line. Comment lines
// and multiword or empty-node rows (ids such as 1-2 or 1.1) are ignored.
func ReadCoNLL(r io.Reader) (*Corpus, error) {
	corpus := &Corpus{}
	var sentence transition.Sentence
	var heads []int
	var labels []string
	flush := func() {
		if len(sentence) == 0 {
			return
		}
		corpus.Sentences = append(corpus.Sentences, sentence)
		corpus.Trees = append(corpus.Trees, transition.NewTreeFrom(heads, labels))
		sentence, heads, labels = nil, nil, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= deprelColumn {
			fields = strings.Fields(line)
		}
		if len(fields) <= deprelColumn {
			return nil, fmt.Errorf("line %d: expected %d columns, found %d", lineNumber, numColumns, len(fields))
		}
		if strings.ContainsAny(fields[idColumn], "-.") {
			continue
		}
		head := transition.None
		if fields[headColumn] != "_" {
			h, err := strconv.Atoi(fields[headColumn])
			if err != nil || h < 0 {
				return nil, fmt.Errorf("line %d: invalid head %q", lineNumber, fields[headColumn])
			}
			head = h
		}
		label := fields[deprelColumn]
		if label == "_" {
			label = ""
		}
		sentence = append(sentence, transition.Token{Word: fields[formColumn], POS: fields[posColumn]})
		heads = append(heads, head)
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading corpus: %w", err)
	}
	flush()
	return corpus, nil
}

// LoadCoNLL reads the corpus stored at path.
func LoadCoNLL(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening corpus: %w", err)
	}
	defer f.Close()
	corpus, err := ReadCoNLL(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return corpus, nil
}

// WriteCoNLL writes one sentence per block with the heads and labels of trees.
func WriteCoNLL(writer io.Writer, sentences []transition.Sentence, trees []*transition.Tree) error {
	if len(sentences) != len(trees) {
		return fmt.Errorf("%d sentences for %d trees", len(sentences), len(trees))
	}
	w := bufio.NewWriter(writer)
	for i, sentence := range sentences {
		for k, token := range sentence {
			head := "_"
			if h := trees[i].Head(k + 1); h != transition.None {
				head = strconv.Itoa(h)
			}
			label := trees[i].Label(k + 1)
			if label == "" {
				label = "_"
			}
			fmt.Fprintf(w, "%d\t%s\t_\t%s\t%s\t_\t%s\t%s\t_\t_\n", k+1, token.Word, token.POS, token.POS, head, label)
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing corpus: %w", err)
	}
	return nil
}

// WriteCoNLLFile writes the annotated sentences to path.
func WriteCoNLLFile(path string, sentences []transition.Sentence, trees []*transition.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := WriteCoNLL(f, sentences, trees); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
