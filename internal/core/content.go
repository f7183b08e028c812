package core

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

// CutSpacingMarker flags content that already carries its paper-width
// styling and cut spacer.
const CutSpacingMarker = "cut-spacing"

const DefaultCutSpacingMM = 30

// AdjustContent constrains the body to the paper width and appends a blank
// spacer so the cut lands below the last line. Only the first <body and
// </body> occurrences are touched, and marked content is returned unchanged.
func AdjustContent(html string, paperWidth, spacingMM int) string {
	if strings.Contains(html, CutSpacingMarker) {
		return html
	}
	if spacingMM <= 0 {
		spacingMM = DefaultCutSpacingMM
	}

	width := fmt.Sprintf("%dmm", paperWidth)
	html = strings.Replace(html, "<body",
		fmt.Sprintf(`<body style="width: %s; max-width: %s; margin: 0 auto;"`, width, width), 1)
	html = strings.Replace(html, "</body>",
		fmt.Sprintf(`<div class="%s" style="height: %dmm"></div></body>`, CutSpacingMarker, spacingMM), 1)
	return html
}

var testPageTemplate = template.Must(template.New("test-page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
@page { size: {{.PaperWidth}}mm auto; margin: 0; }
body { width: {{.PaperWidth}}mm; font-family: monospace; margin: 0; padding: 10mm; font-size: 12pt; }
h1 { text-align: center; border-top: 2px solid #000; border-bottom: 2px solid #000; padding: 5mm 0; }
.line { border-top: 1px dashed #000; margin: 5mm 0; }
.center { text-align: center; }
</style>
</head>
<body>
<h1>TEST PRINT</h1>
<div class="center"><strong>PRINTBRIDGE</strong></div>
<div class="line"></div>
<p><strong>Printer:</strong> {{.Printer}}</p>
<p><strong>Paper Width:</strong> {{.PaperWidth}}mm</p>
<p><strong>Time:</strong> {{.Time}}</p>
<div class="line"></div>
<div class="center">Print OK</div>
<div class="cut-spacing" style="height: {{.SpacingMM}}mm"></div>
</body>
</html>`))

// TestPage renders the built-in test receipt. It already carries the cut
// spacer, so AdjustContent leaves it alone.
func TestPage(printer string, paperWidth, spacingMM int, at time.Time) (string, error) {
	var buf bytes.Buffer
	if err := writeTestPage(&buf, printer, paperWidth, spacingMM, at); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeTestPage(w io.Writer, printer string, paperWidth, spacingMM int, at time.Time) error {
	if spacingMM <= 0 {
		spacingMM = DefaultCutSpacingMM
	}

	err := testPageTemplate.Execute(w, struct {
		Printer    string
		PaperWidth int
		SpacingMM  int
		Time       string
	}{
		Printer:    printer,
		PaperWidth: paperWidth,
		SpacingMM:  spacingMM,
		Time:       at.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("render test page: %w", err)
	}
	return nil
}
