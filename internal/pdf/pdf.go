// Package pdf renders cover letters and resumes to PDF bytes.
package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/textutil"
)

// RenderError indicates a layout failure. Callers may retry since drafts are
// unaffected by a failed render.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("rendering pdf: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

func newDoc() (*fpdf.Fpdf, func(string) string) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetLeftMargin(15)
	doc.SetRightMargin(15)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()
	// Core fonts only speak cp1252; the translator replaces what it cannot map.
	return doc, doc.UnicodeTranslatorFromDescriptor("")
}

func finish(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// RenderCoverLetter produces a styled PDF of the stored draft. The header
// date line is set apart in italics unless it still holds a placeholder.
func RenderCoverLetter(letter models.CoverLetter) ([]byte, error) {
	doc, tr := newDoc()

	doc.SetFont("Helvetica", "B", 20)
	doc.SetTextColor(34, 197, 94)
	doc.CellFormat(0, 12, "Cover Letter", "", 1, "L", false, 0, "")
	doc.SetDrawColor(34, 197, 94)
	doc.SetLineWidth(0.6)
	y := doc.GetY()
	doc.Line(15, y, 195, y)
	doc.Ln(6)

	header := strings.TrimSpace(letter.HeaderDate)
	renderHeader := header != "" && !(strings.Contains(header, "[") && strings.Contains(header, "]"))
	if renderHeader {
		doc.SetFont("Helvetica", "I", 12)
		doc.SetTextColor(100, 116, 139)
		doc.CellFormat(0, 6, tr(header), "", 1, "L", false, 0, "")
		doc.Ln(4)
	}

	doc.SetFont("Helvetica", "", 12)
	doc.SetTextColor(15, 23, 42)

	body := letter.Text
	if renderHeader {
		body = dropHeaderLine(body, header)
	}

	left, _, _, _ := doc.GetMargins()
	for _, paragraph := range splitParagraphs(body) {
		for _, line := range nonEmptyLines(paragraph) {
			safe := wrapLongWords(doc, tr(line))
			doc.SetX(left)
			doc.MultiCell(0, 6, safe, "", "L", false)
		}
		doc.Ln(3)
	}

	return finish(doc)
}

// RenderResume lays out extracted resume text with heading and bullet
// styling. Returns nil bytes when the upload has no usable text.
func RenderResume(upload models.Upload) ([]byte, error) {
	text := upload.Text
	if text == "" && upload.Contents != "" {
		if decoded, err := base64.StdEncoding.DecodeString(upload.Contents); err == nil {
			text = string(decoded)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	heading := textutil.FirstNonEmptyLine(text)
	if heading == "" {
		heading = upload.Name
		if heading == "" {
			heading = "Resume"
		}
	}
	content := strings.TrimSpace(dropHeaderLine(text, heading))

	doc, tr := newDoc()

	doc.SetFont("Helvetica", "B", 20)
	doc.SetTextColor(59, 130, 246)
	doc.CellFormat(0, 12, tr(heading), "", 1, "L", false, 0, "")

	subtitle := upload.Name
	if subtitle == "" {
		subtitle = "Generated resume"
	}
	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(100, 116, 139)
	doc.CellFormat(0, 6, tr(subtitle), "", 1, "L", false, 0, "")
	doc.Ln(6)

	for _, section := range splitParagraphs(content) {
		lines := nonEmptyLines(section)
		if len(lines) == 0 {
			continue
		}
		rest := lines
		head := lines[0]
		if (head == strings.ToUpper(head) && head != strings.ToLower(head) || strings.HasSuffix(head, ":")) && len(lines) > 1 {
			doc.SetFont("Helvetica", "B", 13)
			doc.SetTextColor(34, 197, 94)
			doc.CellFormat(0, 8, tr(strings.TrimSuffix(head, ":")), "", 1, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 12)
			doc.SetTextColor(15, 23, 42)
			rest = lines[1:]
		} else {
			doc.SetFont("Helvetica", "", 12)
			doc.SetTextColor(15, 23, 42)
		}
		for _, line := range rest {
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				line = "- " + strings.TrimSpace(strings.TrimLeft(line, "-*"))
			}
			safe := wrapLongWords(doc, tr(line))
			doc.MultiCell(0, 6, safe, "", "L", false)
		}
		doc.Ln(2)
	}

	if !upload.UploadedAt.IsZero() {
		doc.SetTextColor(148, 163, 184)
		doc.SetFont("Helvetica", "", 10)
		stamp := upload.UploadedAt.Format("January 02, 2006 03:04 PM")
		doc.CellFormat(0, 5, tr(fmt.Sprintf("Source: %s uploaded on %s", upload.Name, stamp)), "", 1, "L", false, 0, "")
	}

	return finish(doc)
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			out = append(out, strings.TrimSpace(block))
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

// dropHeaderLine removes the first occurrence of the header line from the
// body so it is not printed twice.
func dropHeaderLine(body, header string) string {
	target := strings.ToLower(strings.TrimSpace(header))
	lines := strings.Split(body, "\n")
	removed := false
	var kept []string
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if !removed && stripped != "" {
			if strings.ToLower(stripped) == target {
				removed = true
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.TrimLeft(strings.Join(kept, "\n"), " \t\r\n")
}

// wrapLongWords chunks tokens wider than the printable area so MultiCell can
// wrap without erroring.
func wrapLongWords(doc *fpdf.Fpdf, text string) string {
	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	maxW := pageW - left - right

	words := strings.Split(text, " ")
	var out []string
	for _, word := range words {
		if doc.GetStringWidth(word) <= maxW {
			out = append(out, word)
			continue
		}
		chunk := ""
		for _, ch := range word {
			if doc.GetStringWidth(chunk+string(ch)) <= maxW {
				chunk += string(ch)
			} else {
				if chunk != "" {
					out = append(out, chunk)
				}
				chunk = string(ch)
			}
		}
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return strings.Join(out, " ")
}
