package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"binanceTracker/internal/domain"
)

// WriteSeriesCSV writes normalized samples as time,close,quote_volume rows.
func WriteSeriesCSV(w io.Writer, samples []domain.CandleSample) error {
	writer := csv.NewWriter(w)

	// Write header
	if err := writer.Write([]string{"time", "close", "quote_volume"}); err != nil {
		return err
	}

	for _, s := range samples {
		if err := writer.Write([]string{
			s.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(s.Close, 'f', -1, 64),
			strconv.FormatFloat(s.QuoteVolume, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSVFile writes the samples to filename, creating or truncating it.
func WriteSeriesCSVFile(filename string, samples []domain.CandleSample) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteSeriesCSV(file, samples); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
