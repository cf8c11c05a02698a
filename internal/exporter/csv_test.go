package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()

	files, err := NewCSVWriter(nil).Write(filepath.Join(dir, "run_ddct.csv"), sampleTables())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "run_ddct_well.csv"),
		filepath.Join(dir, "run_ddct_sample.csv"),
	}, files)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Gene", "Group", "Sample", "Well", "Cq", "ΔCt", "ΔΔCt", "Fold Change"}, records[0])
	assert.Equal(t, []string{"GeneX", "MT", "MT-1", "B2", "24", "5.5", "1.5", "0.3535533905932738"}, records[1])
}

func TestWriteCSVWithoutBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plain.csv")

	err := NewCSVWriter(nil).WriteCSV(path, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "x,y"}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n", string(data))
}
