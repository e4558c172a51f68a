package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
)

// ErrFontMissing is returned when the UTF-8 font file cannot be read.
var ErrFontMissing = errors.New("font not found")

const fontFamily = "DejaVu"

// PDFRenderer lays out a title line and the extracted text on A4 pages.
type PDFRenderer struct {
	fontPath string

	once sync.Once
	font []byte
	err  error
}

func NewPDFRenderer(fontPath string) *PDFRenderer {
	if fontPath == "" {
		fontPath = "DejaVuSans.ttf"
	}
	return &PDFRenderer{fontPath: fontPath}
}

func (r *PDFRenderer) loadFont() ([]byte, error) {
	r.once.Do(func() {
		b, err := os.ReadFile(r.fontPath)
		if err != nil {
			r.err = fmt.Errorf("%w: %s", ErrFontMissing, r.fontPath)
			return
		}
		r.font = b
	})
	return r.font, r.err
}

// Available reports whether the font can be loaded.
func (r *PDFRenderer) Available() error {
	_, err := r.loadFont()
	return err
}

// Render returns the PDF bytes. The font is checked before any layout.
func (r *PDFRenderer) Render(title, text string) ([]byte, error) {
	font, err := r.loadFont()
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle(title, true)
	pdf.AddUTF8FontFromBytes(fontFamily, "", font)
	pdf.SetFont(fontFamily, "", 12)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "", 14)
	pdf.CellFormat(0, 10, title, "", 1, "", false, 0, "")
	pdf.SetFont(fontFamily, "", 12)
	pdf.MultiCell(0, 10, text, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PDFFilename is the download name for an upload: "<stem>_llama.pdf".
func PDFFilename(upload string) string {
	base := filepath.Base(upload)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "document"
	}
	return stem + "_llama.pdf"
}
