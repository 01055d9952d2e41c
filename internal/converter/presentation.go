package converter

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	drawingMLNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

	slideFontSize   = 12.0
	slideTextX      = 100.0
	slideFirstLineY = 92.0
	slideLineStep   = 20.0
	slideBottomY    = 756.0
)

// slide is the plain text of one slide, one entry per non-empty line.
type slide struct {
	lines []string
}

func pptxToPDF(data []byte) ([]byte, error) {
	slides, err := readSlides(data)
	if err != nil {
		return nil, err
	}
	return renderSlides(slides)
}

func slideNumber(name string) (int, bool) {
	dir, file := path.Split(name)
	if dir != "ppt/slides/" || !strings.HasPrefix(file, "slide") || !strings.HasSuffix(file, ".xml") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file, "slide"), ".xml"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func readSlides(data []byte) ([]slide, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a pptx archive: %w", err)
	}

	type entry struct {
		n int
		f *zip.File
	}
	entries := make([]entry, 0)
	hasPresentation := false
	for _, f := range zr.File {
		if f.Name == "ppt/presentation.xml" {
			hasPresentation = true
		}
		if n, ok := slideNumber(f.Name); ok {
			entries = append(entries, entry{n: n, f: f})
		}
	}
	if !hasPresentation {
		return nil, errors.New("not a pptx archive: ppt/presentation.xml is missing")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })

	slides := make([]slide, 0, len(entries))
	for _, e := range entries {
		rc, err := e.f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", e.f.Name, err)
		}
		lines, err := slideLines(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.f.Name, err)
		}
		slides = append(slides, slide{lines: lines})
	}
	return slides, nil
}

// slideLines collects the text runs of every paragraph. Line breaks inside a paragraph split it.
func slideLines(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines  []string
		para   strings.Builder
		inText bool
	)
	flush := func() {
		for _, line := range strings.Split(para.String(), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
		para.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != drawingMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != drawingMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flush()
	return lines, nil
}

// renderSlides draws each slide on its own Letter page. Text that runs past the bottom continues on a new page.
func renderSlides(slides []slide) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", slideFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(slides) == 0 {
		pdf.AddPage()
	}
	for _, s := range slides {
		pdf.AddPage()
		y := slideFirstLineY
		for _, line := range s.lines {
			if y > slideBottomY {
				pdf.AddPage()
				y = slideFirstLineY
			}
			pdf.Text(slideTextX, y, tr(line))
			y += slideLineStep
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
