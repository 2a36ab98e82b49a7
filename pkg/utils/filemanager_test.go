package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{name}_{timestamp}_{uuid}.xlsx", map[string]string{"name": "stock"})

	pattern := regexp.MustCompile(`^stock_\d{8}_\d{6}_[0-9a-f-]{36}\.xlsx$`)
	assert.Regexp(t, pattern, name)
}

func TestGenerateOutputFileName_Defaults(t *testing.T) {
	assert.Equal(t, "export.xlsx", GenerateOutputFileName("{name}", nil))
	assert.Equal(t, "a_b.XLSX", GenerateOutputFileName("{name}.XLSX", map[string]string{"name": "a/b"}))
	assert.Regexp(t, `^\d{8}\.xlsx$`, GenerateOutputFileName("{date}", nil))
}

func TestGenerateOutputFileName_Unique(t *testing.T) {
	a := GenerateOutputFileName("{uuid}", nil)
	b := GenerateOutputFileName("{uuid}", nil)
	assert.NotEqual(t, a, b)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "stock", BaseName("/tmp/exports/stock.txt"))
	assert.Equal(t, "stock", BaseName(`C:\exports\stock.txt`))
	assert.Equal(t, "report.final", BaseName("report.final.csv"))
	assert.Equal(t, "", BaseName(""))
}

func TestFileManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	fm := NewFileManager(dir, "{name}_{uuid}.xlsx")

	require.NoError(t, fm.EnsureDirectories())
	assert.True(t, FileExists(dir))

	path := fm.OutputPath("uploads/stock.txt")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^stock_[0-9a-f-]{36}\.xlsx$`, filepath.Base(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "missing.xlsx")))
}
