package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("Term,Spend\n"), 0o644))
	return path
}

func TestValidateOpenPathInsideRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.csv")

	m, err := NewManager([]string{dir}, nil)
	require.NoError(t, err)
	require.NoError(t, m.ValidateConfig())

	canonical, err := m.ValidateOpenPath(path)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(canonical))
}

func TestValidateOpenPathRejections(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	outside := writeFile(t, other, "report.csv")
	writeFile(t, dir, "notes.txt")

	m, err := NewManager([]string{dir}, nil)
	require.NoError(t, err)

	_, err = m.ValidateOpenPath(outside)
	require.ErrorIs(t, err, ErrNotAllowed)

	_, err = m.ValidateOpenPath(filepath.Join(dir, "notes.txt"))
	require.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = m.ValidateOpenPath(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateExportPath(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager([]string{dir}, nil)
	require.NoError(t, err)

	out, err := m.ValidateExportPath(filepath.Join(dir, "analysis.xlsx"))
	require.NoError(t, err)
	require.Equal(t, "analysis.xlsx", filepath.Base(out))

	_, err = m.ValidateExportPath(filepath.Join(dir, "analysis.csv"))
	require.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = m.ValidateExportPath(filepath.Join(t.TempDir(), "analysis.xlsx"))
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestEmptyAllowListDeniesByDefault(t *testing.T) {
	m, err := NewManager(nil, nil)
	require.NoError(t, err)
	require.Error(t, m.ValidateConfig())

	_, err = m.ValidateOpenPath("report.csv")
	require.Error(t, err)
}
