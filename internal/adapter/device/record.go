package device

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReplayFromCSV builds a replay from recorded rows. The header must name lat
// and lon; accuracy and batch are optional. Rows sharing a batch number are
// delivered together, in order of first appearance. Without a batch column
// every row is its own batch.
func ReplayFromCSV(r io.Reader, interval time.Duration) (Replay, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return Replay{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return Replay{}, errors.New("read csv: no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"lat", "lon"} {
		if _, ok := colIdx[required]; !ok {
			return Replay{}, fmt.Errorf("read csv: missing %q column", required)
		}
	}

	replay := Replay{Interval: interval}
	batchPos := map[string]int{}
	for n, row := range rows[1:] {
		line := n + 2
		fix, err := parseRow(row, colIdx)
		if err != nil {
			return Replay{}, fmt.Errorf("line %d: %w", line, err)
		}

		key := strconv.Itoa(line)
		if i, ok := colIdx["batch"]; ok {
			key = strings.TrimSpace(row[i])
		}
		pos, seen := batchPos[key]
		if !seen {
			pos = len(replay.Batches)
			batchPos[key] = pos
			replay.Batches = append(replay.Batches, nil)
		}
		replay.Batches[pos] = append(replay.Batches[pos], fix)
	}
	return replay, nil
}

func parseRow(row []string, colIdx map[string]int) (ReplayFix, error) {
	var fix ReplayFix
	var err error

	if fix.Lat, err = parseFloatField(row, colIdx["lat"]); err != nil {
		return fix, fmt.Errorf("lat: %w", err)
	}
	if fix.Lat < -90 || fix.Lat > 90 {
		return fix, fmt.Errorf("lat %v out of range", fix.Lat)
	}
	if fix.Lon, err = parseFloatField(row, colIdx["lon"]); err != nil {
		return fix, fmt.Errorf("lon: %w", err)
	}
	if fix.Lon < -180 || fix.Lon > 180 {
		return fix, fmt.Errorf("lon %v out of range", fix.Lon)
	}
	if i, ok := colIdx["accuracy"]; ok && strings.TrimSpace(row[i]) != "" {
		if fix.Accuracy, err = parseFloatField(row, i); err != nil {
			return fix, fmt.Errorf("accuracy: %w", err)
		}
	}
	return fix, nil
}

func parseFloatField(row []string, i int) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
}

// WriteReplay encodes replay in the format read by ParseReplay.
func WriteReplay(w io.Writer, replay Replay) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(replay); err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}
	return enc.Close()
}
