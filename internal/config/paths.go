package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved application directories
type Paths struct {
	BaseDir   string
	DataDir   string
	OutputDir string
	LogsDir   string
}

// NewPaths resolves every configured directory to an absolute path.
// An empty BaseDir means the current working directory.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:   base,
		DataDir:   resolve(cfg.DataDir),
		OutputDir: resolve(cfg.OutputDir),
		LogsDir:   resolve(cfg.LogsDir),
	}, nil
}

// WithOutputDir returns a copy of p writing outputs to dir.
func (p *Paths) WithOutputDir(dir string) *Paths {
	cp := *p
	if filepath.IsAbs(dir) {
		cp.OutputDir = filepath.Clean(dir)
	} else {
		cp.OutputDir = filepath.Join(p.BaseDir, dir)
	}
	return &cp
}

// EnsureDirectories creates the output and logs directories if missing.
// The data directory is input only and never created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetOutputPath returns the path of a file in the output directory
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetDataPath returns the path of a file in the data directory
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// DefaultInputPath is the log analyzed when no input is given.
func (p *Paths) DefaultInputPath() string {
	return p.GetDataPath(DefaultInputFile)
}

// LotSummaryFileName names the per-lot summary export. Characters that are
// unsafe in file names are replaced with underscores.
func LotSummaryFileName(lot string) string {
	var b strings.Builder
	for _, r := range lot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "lot"
	}
	return name + LotSummarySuffix
}

// LogPathResolution logs the resolved directories.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir))
}
