package file

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, Write("", nil), errEmptyPath)

	target := filepath.Join(t.TempDir(), "nested", "quant.txt")
	require.NoError(t, Write(target, []byte("QuantCode")))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "QuantCode", string(data))
}

func TestWriteTo(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	require.NoError(t, WriteTo(target, bytes.NewBufferString("time,equity\n")))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "time,equity\n", string(data))

	_, err = Writer("")
	assert.ErrorIs(t, err, errEmptyPath)
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}
