package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fermcli/internal/dataprocessing"
	apierrors "fermcli/internal/errors"
)

// FileValidator checks input logs and output directories before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputFile checks that path is a readable CSV or xlsx log.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("input file does not exist", slog.String("file", path))
		return apierrors.NewNotFoundError("input file " + path)
	}
	if err != nil {
		return apierrors.NewParsingError(fmt.Sprintf("failed to stat %s", path), err)
	}
	if info.IsDir() {
		return apierrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apierrors.NewAppValidationError(fmt.Sprintf("%s is a temporary Excel lock file", path))
	}
	if _, err := dataprocessing.FormatForPath(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apierrors.NewParsingError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apierrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	file, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}
