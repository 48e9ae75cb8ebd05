// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// Package extract provides the text-extraction collaborator used by the
// upload chat path. Extraction for rich formats (PDF, DOCX) is an
// external concern; unrecognized extensions yield the fixed not-supported
// marker rather than an error.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NotSupportedMarker is returned as the extracted text for file formats
// this extractor does not understand.
const NotSupportedMarker = "（不支持的文件格式）"

// Extractor turns an uploaded file into plain text.
type Extractor interface {
	// Extract returns the file's plain text, or NotSupportedMarker for
	// unrecognized extensions. Errors are reserved for I/O failures on
	// supported formats.
	Extract(path string) (string, error)
}

// FileExtractor extracts plain-text files by extension.
type FileExtractor struct{}

// NewFileExtractor returns the default extractor.
func NewFileExtractor() *FileExtractor { return &FileExtractor{} }

// Extract implements Extractor.
func (x *FileExtractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	default:
		return NotSupportedMarker, nil
	}
}
