// Package pdf wraps validation and plain-text extraction for uploaded
// invoice documents.
package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data looks like a well-formed PDF. It checks the
// header magic and requires an end-of-file marker somewhere in the tail,
// which is enough to reject renamed images and truncated uploads without
// parsing the whole document.
func IsPDF(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return false
	}
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	return bytes.Contains(tail, []byte("%%EOF"))
}

// ExtractText returns the document's plain text. Encrypted or corrupted
// files fail here, after the cheap IsPDF check has already passed.
func ExtractText(data []byte) (text string, err error) {
	// The underlying parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return buf.String(), nil
}

// Reader adapts the package functions to the intake service's
// DocumentReader interface.
type Reader struct{}

func (Reader) IsPDF(data []byte) bool { return IsPDF(data) }

func (Reader) ExtractText(data []byte) (string, error) { return ExtractText(data) }
