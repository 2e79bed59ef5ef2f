package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
)

// ObservationHeader is the canonical replay file header.
var ObservationHeader = []string{"timestamp", "price", "volume"}

// WriteObservationsToCSV writes observations to filename in the canonical form.
func WriteObservationsToCSV(observations []domain.Observation, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteObservations(file, observations)
}

// WriteObservations writes a header and one row per observation.
func WriteObservations(w io.Writer, observations []domain.Observation) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ObservationHeader); err != nil {
		return err
	}
	for _, o := range observations {
		if err := writer.Write([]string{
			o.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(o.Price, 'f', -1, 64),
			strconv.FormatFloat(o.Volume, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadObservationsFromCSV loads a replay file.
func ReadObservationsFromCSV(filename string) ([]domain.Observation, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadObservations(file)
}

// ReadObservations parses rows of timestamp,price[,volume]. The header row is
// optional. Timestamps are RFC 3339 or Unix milliseconds.
func ReadObservations(r io.Reader) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []domain.Observation
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ports.ErrInvalidFeedRecord, err)
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), ObservationHeader[0]) {
			continue
		}
		obs, err := ParseObservation(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

// ParseObservation converts one CSV record.
func ParseObservation(record []string) (domain.Observation, error) {
	if len(record) < 2 {
		return domain.Observation{}, fmt.Errorf("want timestamp,price[,volume], got %d fields: %w", len(record), ports.ErrInvalidFeedRecord)
	}
	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.Observation{}, err
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("price %q: %w: %w", record[1], ports.ErrInvalidFeedRecord, err)
	}
	var volume float64
	if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
		volume, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return domain.Observation{}, fmt.Errorf("volume %q: %w: %w", record[2], ports.ErrInvalidFeedRecord, err)
		}
	}
	return domain.Observation{Timestamp: ts, Price: price, Volume: volume}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w: %w", s, ports.ErrInvalidFeedRecord, err)
	}
	return ts.UTC(), nil
}
