package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned for file types the pipeline cannot
	// ingest.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyContent is returned when a file yields no extractable text.
	ErrEmptyContent = errors.New("file has no extractable content")
)
