// Package extract turns uploaded documents into plain text for chunking.
// Plain text is read natively, PDFs go through a PDF reader, DOCX files are
// unpacked from their zip container. Audio extensions are handled by
// pkg/transcribe; video is not supported.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind classifies a filename by what the ingest pipeline can do with it.
type Kind int

const (
	// KindUnsupported is a file the pipeline rejects.
	KindUnsupported Kind = iota

	// KindDocument is a file whose text this package extracts.
	KindDocument

	// KindAudio is a file that needs transcription first.
	KindAudio

	// KindVideo is recognized but rejected, audio extraction from video
	// is out of scope.
	KindVideo
)

// KindOf classifies a filename by extension.
func KindOf(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".pdf", ".docx":
		return KindDocument
	case ".mp3", ".wav", ".ogg":
		return KindAudio
	case ".mov", ".mp4", ".mkv":
		return KindVideo
	default:
		return KindUnsupported
	}
}

// Text extracts the plain text of a document file. The file must be of
// KindDocument; anything else wraps ErrUnsupportedFormat. Files whose
// extracted text is empty wrap ErrEmptyContent.
func Text(path string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		text, err = textFile(path)
	case ".pdf":
		text, err = pdfFile(path)
	case ".docx":
		text, err = docxFile(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyContent, filepath.Base(path))
	}
	return text, nil
}

func textFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(raw), nil
}

func pdfFile(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d of %s: %w", pageNum, path, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), nil
}
