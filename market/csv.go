package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadBarsCSV reads bars from a CSV file with columns:
//
//	time,open,high,low,close,volume
//
// Time is RFC3339 or unix seconds. A header row is allowed. Volume may be
// omitted.
func LoadBarsCSV(path, symbol string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []Bar
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("csv row has %d columns, want at least 5", len(row))
		}

		ts, err := parseBarTime(strings.TrimSpace(row[0]))
		if err != nil {
			// Skip a header row, fail on anything else.
			if len(bars) == 0 && !looksNumeric(row[1]) {
				continue
			}
			return nil, fmt.Errorf("parse bar time %q: %w", row[0], err)
		}

		bar := Bar{Symbol: symbol, Time: ts}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		for i, dst := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse column %d in row %v: %w", i+1, row, err)
			}
			*dst = v
		}
		if len(row) > 5 {
			bar.Volume, _ = strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		}
		bars = append(bars, bar)
	}

	SortBarsByTime(bars)
	return bars, nil
}

func parseBarTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
