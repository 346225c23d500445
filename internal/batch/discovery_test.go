package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o600))
}

func TestDiscoverDocuments_EmptyArgs(t *testing.T) {
	files, err := discoverDocuments([]string{}, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDocuments_Directory(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "B.PDF")
	nested := filepath.Join(dir, "sub", "c.pdf")
	touch(t, a)
	touch(t, b)
	touch(t, nested)
	touch(t, filepath.Join(dir, "notes.txt"))

	files, err := discoverDocuments([]string{dir}, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	files, err = discoverDocuments([]string{dir}, true, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b, nested}, files)
}

func TestDiscoverDocuments_Exclude(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "bid.pdf")
	touch(t, keep)
	touch(t, filepath.Join(dir, "bid_redacted.pdf"))

	files, err := discoverDocuments([]string{dir}, false, DefaultIncludePatterns, []string{"*_redacted.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverDocuments_ExplicitFileFiltered(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "x.pdf")
	txt := filepath.Join(dir, "x.txt")
	touch(t, pdf)
	touch(t, txt)

	files, err := discoverDocuments([]string{pdf, txt}, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{pdf}, files)
}

func TestDiscoverDocuments_MissingPath(t *testing.T) {
	_, err := discoverDocuments([]string{filepath.Join(t.TempDir(), "missing")}, false, nil, nil)
	assert.ErrorContains(t, err, "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("/a/b.pdf", nil, nil))
	assert.False(t, shouldIncludeFile("/a/b.pdf", nil, []string{"b.*"}))
	assert.False(t, shouldIncludeFile("/a/b.doc", []string{"*.pdf"}, nil))
	assert.False(t, matchesAnyPattern("/a/b.pdf", nil))
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, dir, suffix, want string
	}{
		{"/in/bid.pdf", "", "_redacted", "/in/bid_redacted.pdf"},
		{"/in/bid.pdf", "/out", "", "/out/bid.pdf"},
		{"/in/bid.final.PDF", "/out", "_r", "/out/bid.final_r.PDF"},
		{"/in/bid", "", "_r", "/in/bid_r"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), OutputPath(filepath.FromSlash(tt.in), filepath.FromSlash(tt.dir), tt.suffix))
	}
}
