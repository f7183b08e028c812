package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustContent(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		width int
		want  string
	}{
		{
			name:  "body styled and spacer added",
			html:  "<html><body>X</body></html>",
			width: 58,
			want:  `<html><body style="width: 58mm; max-width: 58mm; margin: 0 auto;">X<div class="cut-spacing" style="height: 30mm"></div></body></html>`,
		},
		{
			name:  "only first occurrence replaced",
			html:  "<body>a</body><body>b</body>",
			width: 80,
			want:  `<body style="width: 80mm; max-width: 80mm; margin: 0 auto;">a<div class="cut-spacing" style="height: 30mm"></div></body><body>b</body>`,
		},
		{
			name:  "marked content untouched",
			html:  `<body><div class="cut-spacing"></div></body>`,
			width: 80,
			want:  `<body><div class="cut-spacing"></div></body>`,
		},
		{
			name:  "no body tags",
			html:  "plain receipt",
			width: 80,
			want:  "plain receipt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustContent(tt.html, tt.width, 30))
		})
	}
}

func TestAdjustContent_Idempotent(t *testing.T) {
	once := AdjustContent("<html><body>X</body></html>", 72, 30)
	assert.Equal(t, once, AdjustContent(once, 58, 30))
}

func TestTestPage(t *testing.T) {
	page, err := TestPage("Bar <1>", 58, 25, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, page, "TEST PRINT")
	assert.Contains(t, page, "Bar &lt;1&gt;")
	assert.Contains(t, page, "58mm")
	assert.Contains(t, page, "2024-05-01 12:30:00")
	assert.True(t, strings.Contains(page, CutSpacingMarker))
	assert.Equal(t, page, AdjustContent(page, 80, 30))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestTestPage_WriteFailure(t *testing.T) {
	err := writeTestPage(failingWriter{}, "Bar", 58, 25, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
