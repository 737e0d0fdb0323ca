package pdf

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
	"github.com/yanqian/ai-travel-planner/pkg/util"
)

const (
	inch         = 72.0
	marginX      = 0.75 * inch
	marginTop    = 0.95 * inch
	marginBottom = 0.9 * inch

	pageBreakMarker = "__PAGEBREAK__"
	footerLabel     = "Travel Planner Report"
	unicodeFamily   = "PlannerSans"
)

// Config selects the text font. Without a UTF-8 font the core Latin-1 fonts are
// used and characters outside cp1252 print as placeholders.
type Config struct {
	FontPath string
}

// Renderer turns plain-text reports into a paginated Letter-size PDF.
type Renderer struct {
	author string
	font   []byte
	logger *slog.Logger
}

// NewRenderer constructs a renderer. An unreadable or invalid font is logged and
// the core fonts are used instead.
func NewRenderer(cfg Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{author: "Travel Planner", logger: logger.With("component", "render.pdf")}
	if cfg.FontPath == "" {
		return r
	}
	font, err := loadFont(cfg.FontPath)
	if err != nil {
		r.logger.Warn("pdf font unavailable, using core fonts", "path", cfg.FontPath, "error", err)
		return r
	}
	r.font = font
	return r
}

func loadFont(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trial := fpdf.New("P", "pt", "Letter", "")
	trial.AddUTF8FontFromBytes(unicodeFamily, "", data)
	if err := trial.Error(); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return data, nil
}

// typeface is the font family pair and text encoder used for one document.
type typeface struct {
	sans string
	mono string
	tr   func(string) string
}

func (r *Renderer) typeface(doc *fpdf.Fpdf) typeface {
	if r.font == nil {
		return typeface{sans: "Helvetica", mono: "Courier", tr: doc.UnicodeTranslatorFromDescriptor("")}
	}
	doc.AddUTF8FontFromBytes(unicodeFamily, "", r.font)
	doc.AddUTF8FontFromBytes(unicodeFamily, "B", r.font)
	return typeface{sans: unicodeFamily, mono: unicodeFamily, tr: func(s string) string { return s }}
}

// Render implements planner.Renderer.
func (r *Renderer) Render(title, clientName, content string) ([]byte, error) {
	doc := fpdf.New("P", "pt", "Letter", "")
	face := r.typeface(doc)
	tr := face.tr
	if r.font == nil {
		if lost := lossyRunes(title + clientName + content); lost > 0 {
			r.logger.Warn("pdf text has characters outside cp1252", "count", lost, "title", title)
		}
	}

	doc.SetTitle(title, true)
	doc.SetAuthor(r.author, false)
	doc.SetMargins(marginX, marginTop, marginX)
	doc.SetAutoPageBreak(true, marginBottom)

	doc.SetHeaderFunc(func() { drawHeader(doc, face, tr(title), tr(clientName)) })
	doc.SetFooterFunc(func() { drawFooter(doc, face) })
	doc.AddPage()

	for _, raw := range util.SplitLines(content) {
		trimmed := strings.TrimSpace(raw)
		switch {
		case trimmed == "":
			doc.Ln(8)
		case strings.EqualFold(trimmed, pageBreakMarker):
			doc.AddPage()
		case strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t"):
			doc.SetFont(face.mono, "", 9.5)
			doc.SetTextColor(0, 0, 0)
			doc.CellFormat(0, 12, tr(strings.TrimRight(raw, " \t")), "", 1, "L", false, 0, "")
			doc.Ln(2)
		case isRule(trimmed):
			doc.SetFont(face.sans, "", 10)
			doc.SetTextColor(0x66, 0x66, 0x66)
			doc.MultiCell(0, 13, tr(raw), "", "L", false)
			doc.Ln(6)
		default:
			doc.SetFont(face.sans, "", 10)
			doc.SetTextColor(0, 0, 0)
			doc.MultiCell(0, 13, tr(raw), "", "L", false)
			doc.Ln(6)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(doc *fpdf.Fpdf, face typeface, title, clientName string) {
	width, _ := doc.GetPageSize()
	right := width - marginX
	baseline := 0.65 * inch

	doc.SetFont(face.sans, "B", 11)
	doc.SetTextColor(0, 0, 0)
	doc.Text(marginX, baseline, title)

	if clientName != "" {
		label := "Prepared for: " + clientName
		doc.SetFont(face.sans, "", 9)
		doc.Text(right-doc.GetStringWidth(label), baseline, label)
	}

	doc.SetDrawColor(211, 211, 211)
	doc.SetLineWidth(0.7)
	doc.Line(marginX, 0.72*inch, right, 0.72*inch)
}

func drawFooter(doc *fpdf.Fpdf, face typeface) {
	width, height := doc.GetPageSize()
	right := width - marginX

	doc.SetDrawColor(211, 211, 211)
	doc.SetLineWidth(0.7)
	doc.Line(marginX, height-0.75*inch, right, height-0.75*inch)

	doc.SetFont(face.sans, "", 9)
	doc.SetTextColor(128, 128, 128)
	baseline := height - 0.55*inch
	doc.Text(marginX, baseline, footerLabel)
	page := fmt.Sprintf("Page %d", doc.PageNo())
	doc.Text(right-doc.GetStringWidth(page), baseline, page)
}

// isRule reports whether the line is made only of '=' or only of '-'.
func isRule(line string) bool {
	if line == "" {
		return false
	}
	first := rune(line[0])
	if first != '=' && first != '-' {
		return false
	}
	return strings.Trim(line, string(first)) == ""
}

// cp1252Extras are the printable cp1252 code points outside Latin-1.
const cp1252Extras = "€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ"

// lossyRunes counts characters the core fonts cannot encode.
func lossyRunes(s string) int {
	lost := 0
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
		case r >= 0x20 && r < 0x7f, r >= 0xa0 && r <= 0xff:
		case strings.ContainsRune(cp1252Extras, r):
		default:
			lost++
		}
	}
	return lost
}

var _ planner.Renderer = (*Renderer)(nil)
