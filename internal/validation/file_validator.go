package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"qpcrcli/internal/infrastructure"
)

var (
	// ErrNotPlateFile is returned for inputs that are not .xlsx, .xlsm or .csv.
	ErrNotPlateFile = errors.New("not a plate file")
	// ErrTempFile is returned for spreadsheet lock files such as ~$plate.xlsx.
	ErrTempFile = errors.New("temporary spreadsheet file")
)

// PlateExtensions lists the input extensions the reader understands.
var PlateExtensions = []string{".xlsx", ".xlsm", ".csv"}

// OutputSuffix marks files this tool produced; batch scans skip them.
const OutputSuffix = "_ddct"

// FileValidator checks input plates and output locations before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	return &FileValidator{
		logger: infrastructure.WithComponent(logger, "file_validator"),
	}
}

// ValidateInputDirectory checks that dir exists and is a directory.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist: %w", dir, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists, creating it if needed, and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	scratch, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	scratch.Close()
	os.Remove(scratch.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist: %w", path, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidatePlateFile checks that path names a readable workbook or CSV export.
func (v *FileValidator) ValidatePlateFile(path string) error {
	if err := CheckPlateName(path); err != nil {
		v.logger.Error("Rejected input file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return err
	}
	return v.ValidateFile(path)
}

// CheckPlateName validates only the file name: extension and lock-file prefix.
func CheckPlateName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(PlateExtensions, ext) {
		return fmt.Errorf("%s (extension %q, want .xlsx, .xlsm or .csv): %w", name, ext, ErrNotPlateFile)
	}
	if strings.HasPrefix(filepath.Base(name), "~$") {
		return fmt.Errorf("%s: %w", name, ErrTempFile)
	}
	return nil
}

// ListPlateFiles returns the plate files directly inside dir, sorted by name.
// Lock files and previous outputs are skipped.
func (v *FileValidator) ListPlateFiles(dir string) ([]string, error) {
	if err := v.ValidateInputDirectory(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || CheckPlateName(e.Name()) != nil {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if strings.Contains(stem, OutputSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)

	v.logger.Info("Input directory scanned",
		slog.String("directory", dir),
		slog.Int("files_found", len(files)))
	return files, nil
}
