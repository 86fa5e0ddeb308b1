package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binanceTracker/internal/domain"
)

func testSamples() []domain.CandleSample {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.CandleSample{
		{Time: base, Close: 42000.5, QuoteVolume: 1.5e9},
		{Time: base.AddDate(0, 0, 7), Close: 43000, QuoteVolume: 250},
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, testSamples()))

	expected := "time,close,quote_volume\n" +
		"2024-01-01T00:00:00Z,42000.5,1500000000\n" +
		"2024-01-08T00:00:00Z,43000,250\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteSeriesCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, nil))
	assert.Equal(t, "time,close,quote_volume\n", buf.String())
}

func TestWriteSeriesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, WriteSeriesCSVFile(path, testSamples()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-01-08T00:00:00Z,43000,250")

	assert.Error(t, WriteSeriesCSVFile(filepath.Join(t.TempDir(), "missing", "x.csv"), testSamples()))
}
