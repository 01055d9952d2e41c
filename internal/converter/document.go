package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfcpuOnce sync.Once

func pdfConfig() *model.Configuration {
	pdfcpuOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// validatePDF checks that data parses as a PDF with at least one page.
func validatePDF(data []byte) error {
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pdf has no pages")
	}
	return nil
}

func (c *DefaultConverter) docxToPDF(ctx context.Context, in Input) ([]byte, error) {
	if c.tools.Office == "" {
		return nil, fmt.Errorf("office suite is not installed")
	}

	dir, cleanup, err := c.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inputPath := filepath.Join(dir, "input.docx")
	if err := os.WriteFile(inputPath, in.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	if err := c.run(ctx, c.tools.Office, "--headless", "--convert-to", "pdf", "--outdir", dir, inputPath); err != nil {
		return nil, err
	}

	out, err := readGenerated(dir, "input", "pdf")
	if err != nil {
		return nil, err
	}
	if err := validatePDF(out); err != nil {
		return nil, fmt.Errorf("office suite produced a broken pdf: %w", err)
	}
	return out, nil
}

func (c *DefaultConverter) pdfToDOCX(ctx context.Context, in Input) ([]byte, error) {
	if c.tools.PDF2DOCX == "" && c.tools.Office == "" {
		return nil, fmt.Errorf("no pdf importer installed")
	}
	if err := validatePDF(in.Data); err != nil {
		return nil, err
	}

	dir, cleanup, err := c.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inputPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(inputPath, in.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	if c.tools.PDF2DOCX != "" {
		outputPath := filepath.Join(dir, "input.docx")
		if err := c.run(ctx, c.tools.PDF2DOCX, "convert", inputPath, outputPath); err != nil {
			return nil, err
		}
	} else {
		err := c.run(ctx, c.tools.Office, "--headless", "--infilter=writer_pdf_import",
			"--convert-to", `docx:MS Word 2007 XML`, "--outdir", dir, inputPath)
		if err != nil {
			return nil, err
		}
	}

	return readGenerated(dir, "input", "docx")
}

// readGenerated reads <base>.<ext> from dir, accepting an upper-case extension as well.
func readGenerated(dir, base, ext string) ([]byte, error) {
	candidates := []string{
		filepath.Join(dir, base+"."+ext),
		filepath.Join(dir, base+"."+strings.ToUpper(ext)),
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read result: %w", err)
		}
	}
	return nil, fmt.Errorf("converter did not create %s.%s", base, ext)
}
