package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// OCR defaults.
const (
	DefaultDPI       = 300
	DefaultLanguages = "spa+eng"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func defaultLookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// InstallInstructions tells the user how to get the OCR tools.
func InstallInstructions() string {
	return `OCR needs pdftoppm (poppler) and tesseract with Spanish data:
  macOS:  brew install poppler tesseract tesseract-lang
  Debian: apt install poppler-utils tesseract-ocr tesseract-ocr-spa`
}

// ocrEngine renders pages to PNG with pdftoppm and reads them with tesseract.
type ocrEngine struct {
	runner    CommandRunner
	pdftoppm  string
	tesseract string
	dpi       int
	langs     string
	workDir   string
}

func startOCR(runner CommandRunner, lookPath func(string) (string, error), dpi int, langs string) (*ocrEngine, error) {
	pdftoppm, err := lookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm not found\n%s", domain.ErrOCRUnavailable, InstallInstructions())
	}
	tesseract, err := lookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract not found\n%s", domain.ErrOCRUnavailable, InstallInstructions())
	}

	workDir, err := os.MkdirTemp("", "plataformas-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating OCR work directory: %w", err)
	}
	logger.Debug("OCR engine started (dpi=%d, langs=%s, dir=%s)", dpi, langs, workDir)

	return &ocrEngine{
		runner:    runner,
		pdftoppm:  pdftoppm,
		tesseract: tesseract,
		dpi:       dpi,
		langs:     langs,
		workDir:   workDir,
	}, nil
}

func (o *ocrEngine) recognise(ctx context.Context, path string, page int) (string, error) {
	prefix := filepath.Join(o.workDir, "page-"+strconv.Itoa(page))
	n := strconv.Itoa(page)

	if _, err := o.runner.Run(ctx, o.pdftoppm,
		"-r", strconv.Itoa(o.dpi), "-f", n, "-l", n, "-png", "-singlefile", path, prefix); err != nil {
		return "", err
	}
	image := prefix + ".png"
	defer os.Remove(image)

	out, err := o.runner.Run(ctx, o.tesseract, image, "stdout", "-l", o.langs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (o *ocrEngine) close() error {
	return os.RemoveAll(o.workDir)
}
