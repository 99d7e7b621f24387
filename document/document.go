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

// Package document resolves uploaded files and reads their text.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultUploadsDir is where uploaded documents are stored.
const DefaultUploadsDir = "./uploads/"

var (
	// ErrFilenameRequired is returned when no filename is given.
	ErrFilenameRequired = errors.New("filename is required")

	// ErrFileNotFound is returned when the resolved file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrNotText is returned when a file does not contain UTF-8 text.
	ErrNotText = errors.New("file is not valid UTF-8 text")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader extracts the raw text of a stored file.
type Reader interface {
	GetFileContent(ctx context.Context, path string) (string, error)
}

// ResolvePath returns the stored path of filename inside uploadsDir.
// It fails with ErrFilenameRequired for an empty name and ErrFileNotFound when
// the file is absent. Names may not escape uploadsDir.
func ResolvePath(uploadsDir, filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrFilenameRequired
	}
	if uploadsDir == "" {
		uploadsDir = DefaultUploadsDir
	}

	clean := filepath.Clean(filepath.FromSlash(filename))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}

	path := filepath.Join(uploadsDir, clean)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return path, nil
}

// FileReader reads plain text files from disk.
type FileReader struct{}

// NewFileReader creates a FileReader.
func NewFileReader() *FileReader {
	return &FileReader{}
}

// GetFileContent returns the text of the file at path.
func (r *FileReader) GetFileContent(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return string(data), nil
}

var _ Reader = (*FileReader)(nil)
