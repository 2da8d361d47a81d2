package textutil

import (
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractUploadText pulls plain text out of an uploaded document for prompt
// context. Only PDF content is supported; other formats yield an empty string.
func ExtractUploadText(raw []byte, filename, mimeType string) string {
	lowered := strings.ToLower(filename)
	mime := strings.ToLower(mimeType)

	if mime == "application/pdf" || strings.HasSuffix(lowered, ".pdf") {
		return extractPDFText(raw)
	}
	return ""
}

func extractPDFText(raw []byte) (text string) {
	// The pdf library panics on some malformed documents; a bad upload must
	// not take the request down.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered while extracting pdf text: %v", r)
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		log.Printf("unable to open uploaded pdf: %v", err)
		return ""
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		log.Printf("unable to extract pdf text: %v", err)
		return ""
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		log.Printf("unable to read pdf text stream: %v", err)
		return ""
	}

	return Truncate(strings.TrimSpace(buf.String()), MaxStoredTextLength)
}
