// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunker splits document text into ordered chunks.
//
// The default strategy groups sentences into fixed windows. A character based
// strategy backed by langchaingo's recursive splitter is available for text
// without reliable sentence punctuation.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/docembed/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Default sentence window.
const (
	DefaultWindow  = 8
	DefaultOverlap = 0
)

// ErrInvalidWindow is returned for a window that cannot make progress.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Splitter splits text into ordered chunks.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// SentenceChunker groups consecutive sentences into chunks of Window sentences,
// with Overlap sentences repeated between neighbouring chunks.
type SentenceChunker struct {
	Window  int
	Overlap int
}

// NewSentenceChunker creates a sentence chunker.
func NewSentenceChunker(window, overlap int) (*SentenceChunker, error) {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("%w: window %d overlap %d", ErrInvalidWindow, window, overlap)
	}
	return &SentenceChunker{Window: window, Overlap: overlap}, nil
}

// Default returns the 8 sentence, zero overlap chunker.
func Default() *SentenceChunker {
	return &SentenceChunker{Window: DefaultWindow, Overlap: DefaultOverlap}
}

// SplitText returns the chunks of text in document order.
func (c *SentenceChunker) SplitText(text string) ([]string, error) {
	if c.Window <= 0 || c.Overlap < 0 || c.Overlap >= c.Window {
		return nil, fmt.Errorf("%w: window %d overlap %d", ErrInvalidWindow, c.Window, c.Overlap)
	}

	sentences := Sentences(text)
	if len(sentences) == 0 {
		return []string{}, nil
	}

	step := c.Window - c.Overlap
	chunks := make([]string, 0, (len(sentences)+step-1)/step)
	for start := 0; start < len(sentences); start += step {
		end := min(start+c.Window, len(sentences))
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}

// Sentences splits text into trimmed sentences.
// A sentence ends at '.', '!' or '?' (plus any closing quotes or brackets)
// followed by whitespace, or at a blank line. A blank line is any whitespace
// run holding two line feeds, so CRLF text splits like LF text.
func Sentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		s := strings.Join(strings.Fields(current.String()), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		switch {
		case r == '.' || r == '!' || r == '?':
			j := i + 1
			for j < len(runes) && isCloser(runes[j]) {
				current.WriteRune(runes[j])
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				flush()
			}
			i = j - 1
		case r == '\n' && blankLineFollows(runes, i+1):
			flush()
		}
	}
	flush()
	return sentences
}

// blankLineFollows reports whether the whitespace starting at runes[i]
// reaches another line feed.
func blankLineFollows(runes []rune, i int) bool {
	for ; i < len(runes) && unicode.IsSpace(runes[i]); i++ {
		if runes[i] == '\n' {
			return true
		}
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '.', '!', '?':
		return true
	}
	return false
}

// Recursive is a character based Splitter backed by langchaingo.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

// NewRecursive creates a character splitter with the given chunk size and overlap, in characters.
func NewRecursive(chunkSize, chunkOverlap int) (*Recursive, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size %d overlap %d", ErrInvalidWindow, chunkSize, chunkOverlap)
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

// SplitText returns the chunks of text in document order.
func (r *Recursive) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	return r.splitter.SplitText(text)
}

// Chunks splits text with s and numbers the result for file.
// Indices run 0..n-1 and every chunk carries Total n.
func Chunks(s Splitter, text, file string) ([]core.DocumentChunk, error) {
	parts, err := s.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]core.DocumentChunk, len(parts))
	for i, p := range parts {
		chunks[i] = core.DocumentChunk{
			Text:  p,
			Index: i,
			Total: len(parts),
			File:  file,
		}
	}
	return chunks, nil
}

var (
	_ Splitter = (*SentenceChunker)(nil)
	_ Splitter = (*Recursive)(nil)
)
