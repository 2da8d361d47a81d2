package pdf

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywise/applywise/internal/models"
)

func TestRenderCoverLetter(t *testing.T) {
	letter := models.CoverLetter{
		ID:         "letter_1",
		ProfileID:  "PROF",
		ThreadID:   "default",
		HeaderDate: "September 1, 2026",
		Text: strings.Join([]string{
			"September 1, 2026",
			"",
			"Dear Hiring Manager,",
			"",
			"I am excited to apply for the role.",
			"",
			"Sincerely,",
			"Jane Doe",
		}, "\n"),
	}

	data, err := RenderCoverLetter(letter)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestRenderCoverLetterLongWordAndUnicode(t *testing.T) {
	letter := models.CoverLetter{
		Text: "Dear Team,\n\n" + strings.Repeat("superlongtoken", 40) + " résumé naïve —\n\nSincerely,",
	}

	data, err := RenderCoverLetter(letter)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestRenderResume(t *testing.T) {
	text := strings.Join([]string{
		"Jane Doe",
		"",
		"EXPERIENCE",
		"- Shipped things",
		"- Fixed things",
		"",
		"Education:",
		"BS Computer Science",
	}, "\n")

	upload := models.Upload{
		ID:         "file_1",
		Name:       "resume.pdf",
		Text:       text,
		UploadedAt: time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC),
	}
	data, err := RenderResume(upload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestRenderResumeFallsBackToContents(t *testing.T) {
	upload := models.Upload{
		Name:     "resume.txt",
		Contents: base64.StdEncoding.EncodeToString([]byte("Jane Doe\n\nSKILLS\nGo, SQL")),
	}
	data, err := RenderResume(upload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestRenderResumeNoText(t *testing.T) {
	data, err := RenderResume(models.Upload{Name: "scan.pdf"})
	require.NoError(t, err)
	assert.Nil(t, data)
}
