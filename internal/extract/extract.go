// Package extract pulls plain text out of uploaded resume files. PDF and
// DOCX uploads are supported; anything else is rejected before extraction.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported reports a file type extraction cannot handle.
var ErrUnsupported = errors.New("unsupported resume file type")

// Allowed reports whether fileName has an extension extraction supports.
func Allowed(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".doc", ".docx":
		return true
	}
	return false
}

// Text extracts the plain text of an uploaded resume. The format is chosen
// by file extension; .doc files are treated as DOCX archives.
func Text(data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("extract: empty file")
	}
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".pdf":
		return fromPDF(data)
	case ".doc", ".docx":
		return fromDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

func fromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extract: read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func fromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open docx: %w", err)
	}

	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract: open document.xml: %w", err)
		}
		defer rc.Close()
		return flattenXML(rc)
	}
	return "", errors.New("extract: docx has no word/document.xml")
}

// flattenXML keeps character data and inserts newlines at paragraph and
// line break boundaries.
func flattenXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract: parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && sb.Len() > 0 {
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
