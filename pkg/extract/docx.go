package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docxFile pulls the paragraph text out of word/document.xml inside the DOCX
// zip container. Formatting runs collapse to their text; paragraphs become
// newlines.
func docxFile(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer r.Close()

	var doc io.ReadCloser
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("opening document.xml in %s: %w", path, err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%s has no word/document.xml", path)
	}
	defer doc.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(doc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml in %s: %w", path, err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}

	return b.String(), nil
}
