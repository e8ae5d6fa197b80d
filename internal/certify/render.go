package certify

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// View is the display data printed on a certificate.
type View struct {
	Number      string
	LearnerName string
	CourseTitle string
	ModuleTitle string
	Score       int
	IssuedAt    time.Time
}

// Renderer draws landscape certificate images.
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
	italic  *truetype.Font
	footer  string
}

// A4 landscape at 108 dpi.
const (
	pageW = 1263
	pageH = 893
)

var (
	burgundy = color.RGBA{0x80, 0x00, 0x20, 0xff}
	gray     = color.RGBA{0x44, 0x44, 0x44, 0xff}
)

// NewRenderer loads the Go fonts, or a TrueType file for the regular face when
// fontPath is set. footer is printed at the bottom of the page.
func NewRenderer(fontPath, footer string) (*Renderer, error) {
	regularTTF := goregular.TTF
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		regularTTF = b
	}
	r := &Renderer{footer: footer}
	var err error
	if r.regular, err = truetype.Parse(regularTTF); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if r.bold, err = truetype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	if r.italic, err = truetype.Parse(goitalic.TTF); err != nil {
		return nil, fmt.Errorf("parse italic font: %w", err)
	}
	return r, nil
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// Render returns the certificate as PNG bytes.
func (r *Renderer) Render(v View) ([]byte, error) {
	dc := gg.NewContext(pageW, pageH)
	dc.SetColor(color.White)
	dc.Clear()

	const margin = 40.0
	dc.SetColor(burgundy)
	dc.SetLineWidth(6)
	dc.DrawRectangle(margin, margin, pageW-2*margin, pageH-2*margin)
	dc.Stroke()

	cx := float64(pageW) / 2
	line := func(f *truetype.Font, size float64, c color.Color, y float64, s string) {
		dc.SetFontFace(face(f, size))
		dc.SetColor(c)
		dc.DrawStringAnchored(s, cx, y, 0.5, 0.5)
	}

	line(r.bold, 48, burgundy, 190, "Certificate of Completion")
	dc.SetColor(gray)
	dc.SetLineWidth(1.5)
	dc.DrawLine(pageW/4, 230, pageW*3/4, 230)
	dc.Stroke()

	line(r.regular, 24, gray, 300, "This certifies that")
	line(r.bold, 40, burgundy, 355, v.LearnerName)
	line(r.regular, 22, gray, 410, "has successfully completed")
	line(r.bold, 32, burgundy, 465, v.CourseTitle)
	line(r.regular, 20, gray, 510, "Module: "+v.ModuleTitle)
	line(r.regular, 20, gray, 545, fmt.Sprintf("Score Achieved: %d%%", v.Score))

	line(r.italic, 17, gray, pageH-margin-150, "Issued on "+v.IssuedAt.Format("02 January 2006"))
	line(r.italic, 17, gray, pageH-margin-120, "Certificate No: "+v.Number)
	if r.footer != "" {
		line(r.regular, 15, burgundy, pageH-margin-70, r.footer)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
