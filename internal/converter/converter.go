package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// ErrEmptyResult is returned when a backend finished without producing any bytes.
var ErrEmptyResult = errors.New("empty conversion result")

// Input is an uploaded payload together with the name and extension the user declared.
type Input struct {
	Data     []byte
	FileName string
	Ext      string
}

// Artifact is a produced file ready to be sent back.
type Artifact struct {
	Data     []byte
	FileName string
}

type Converter interface {
	Convert(ctx context.Context, spec formats.ModeSpec, in Input) (*Artifact, error)
}

// Runner executes an external tool and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type DefaultConverter struct {
	tempDir string
	runner  Runner
	tools   Tools
	log     logrus.FieldLogger
}

type Option func(*DefaultConverter)

func WithRunner(r Runner) Option {
	return func(c *DefaultConverter) {
		if r != nil {
			c.runner = r
		}
	}
}

func WithTools(t Tools) Option {
	return func(c *DefaultConverter) { c.tools = t }
}

func WithTempDir(dir string) Option {
	return func(c *DefaultConverter) {
		if strings.TrimSpace(dir) != "" {
			c.tempDir = dir
		}
	}
}

func NewDefaultConverter(log logrus.FieldLogger, opts ...Option) (*DefaultConverter, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &DefaultConverter{
		tempDir: filepath.Join(os.TempDir(), "convert_menu_bot"),
		runner:  ExecRunner,
		tools:   LookupTools(),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir %s: %w", c.tempDir, err)
	}
	return c, nil
}

func (c *DefaultConverter) Tools() Tools {
	return c.tools
}

// Convert runs the backend registered for spec.Mode. The returned artifact is never empty.
func (c *DefaultConverter) Convert(ctx context.Context, spec formats.ModeSpec, in Input) (*Artifact, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("convert %s: empty input", spec.Mode)
	}

	var (
		out []byte
		err error
	)
	switch spec.Mode {
	case types.ModePNGToJPG, types.ModeWEBPToJPG:
		out, err = toJPEG(in.Data, spec.Quality)
	case types.ModeJPGToPNG:
		out, err = toPNG(in.Data)
	case types.ModeGrayscale:
		out, err = toGrayscale(in.Data, spec.Quality)
	case types.ModeJPGToWEBP:
		out, err = c.toWebP(ctx, in.Data, spec.Quality)
	case types.ModeDOCXToPDF:
		out, err = c.docxToPDF(ctx, in)
	case types.ModePDFToDOCX:
		out, err = c.pdfToDOCX(ctx, in)
	case types.ModePPTXToPDF:
		out, err = pptxToPDF(in.Data)
	default:
		return nil, fmt.Errorf("convert: unknown mode %q", spec.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", spec.Mode, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("convert %s: %w", spec.Mode, ErrEmptyResult)
	}

	return &Artifact{
		Data:     out,
		FileName: spec.ResultFileName(in.FileName),
	}, nil
}

// workDir creates a per-request scratch directory. The returned cleanup must always be called.
func (c *DefaultConverter) workDir() (string, func(), error) {
	dir, err := os.MkdirTemp(c.tempDir, "convert-"+uuid.NewString()+"-")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			c.log.WithError(err).WithField("dir", dir).Warn("failed to clean up work dir")
		}
	}
	return dir, cleanup, nil
}

func (c *DefaultConverter) run(ctx context.Context, name string, args ...string) error {
	output, err := c.runner(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w, output: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
