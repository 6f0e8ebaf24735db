// Package security enforces a filesystem allow-list for report paths so the
// analyzer only ever touches directories an operator opted in. Roots are
// canonicalized on startup; every open or export path must resolve inside
// one of them with a supported extension.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager validates report and export paths against the allow-list roots.
type Manager struct {
	allowedDirs []string
	reportExts  map[string]struct{}
}

// ErrNotAllowed indicates the requested path is outside the allow-list roots.
var ErrNotAllowed = errors.New("security: path not allowed")

// ErrUnsupportedExtension indicates the file extension is not supported.
var ErrUnsupportedExtension = errors.New("security: unsupported file extension")

// ErrNotFound indicates the requested file does not exist or is not accessible.
var ErrNotFound = errors.New("security: file not found")

// defaultReportExts covers the report formats the ingest package understands.
var defaultReportExts = []string{".csv", ".tsv", ".xlsx", ".xlsm"}

// NewManager canonicalizes the allow-list directories (absolute paths with
// symlinks resolved) and validates they exist. A nil extension list uses the
// report formats the analyzer accepts.
func NewManager(allowDirs, reportExtensions []string) (*Manager, error) {
	if len(reportExtensions) == 0 {
		reportExtensions = defaultReportExts
	}
	exts := make(map[string]struct{}, len(reportExtensions))
	for _, e := range reportExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("security: invalid extension: %q", e)
		}
		exts[e] = struct{}{}
	}

	canonical := make([]string, 0, len(allowDirs))
	for _, d := range allowDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("security: resolve abs for %q: %w", d, err)
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("security: stat %q: %w", real, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("security: allow-list entry is not a directory: %q", real)
		}
		canonical = append(canonical, filepath.Clean(real))
	}
	return &Manager{allowedDirs: canonical, reportExts: exts}, nil
}

// NewManagerFromEnv constructs a Manager from NGRAM_ALLOWED_DIRS, a path
// list separated by os.PathListSeparator. Empty means deny-by-default.
func NewManagerFromEnv() (*Manager, error) {
	var dirs []string
	if list := os.Getenv("NGRAM_ALLOWED_DIRS"); list != "" {
		dirs = filepath.SplitList(list)
	}
	return NewManager(dirs, nil)
}

// AllowedDirectories returns the canonical allow-list roots.
func (m *Manager) AllowedDirectories() []string {
	out := make([]string, len(m.allowedDirs))
	copy(out, m.allowedDirs)
	return out
}

// ValidateConfig fails when no allow-list entries are configured, so servers
// refuse to start with file access implicitly wide open.
func (m *Manager) ValidateConfig() error {
	if len(m.allowedDirs) == 0 {
		return errors.New("security: no allowed directories configured")
	}
	return nil
}

// ValidateOpenPath ensures the input refers to an existing report file with
// an allowed extension inside one of the roots, returning the canonical
// absolute path suitable for opening.
func (m *Manager) ValidateOpenPath(input string) (string, error) {
	if input == "" {
		return "", ErrNotAllowed
	}
	ext := strings.ToLower(filepath.Ext(input))
	if _, ok := m.reportExts[ext]; !ok {
		return "", ErrUnsupportedExtension
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotAllowed
	}
	if !m.contained(real) {
		return "", ErrNotAllowed
	}
	return real, nil
}

// ValidateExportPath ensures an output workbook path lands inside a root.
// The file itself need not exist yet, but its directory must, and the
// extension must be .xlsx.
func (m *Manager) ValidateExportPath(input string) (string, error) {
	if input == "" {
		return "", ErrNotAllowed
	}
	if strings.ToLower(filepath.Ext(input)) != ".xlsx" {
		return "", ErrUnsupportedExtension
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	canonical := filepath.Join(dir, filepath.Base(abs))
	if !m.contained(canonical) {
		return "", ErrNotAllowed
	}
	return canonical, nil
}

func (m *Manager) contained(real string) bool {
	for _, root := range m.allowedDirs {
		rel, err := filepath.Rel(root, real)
		if err != nil || rel == "." || rel == "" {
			continue
		}
		if !strings.HasPrefix(rel, "..") && !strings.HasPrefix(filepath.Clean(rel), "..") {
			return true
		}
	}
	return false
}
