package compliance

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

var csvHeader = []string{"generated_at", "check_name", "status", "severity", "fatal", "record_id", "sequence_id", "details"}

// Write renders the report in the requested format.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, r)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

func writeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	generated := r.GeneratedAt.UTC().Format(time.RFC3339)
	for _, f := range r.Findings {
		record, seq := "", ""
		if f.RecordID != nil {
			record = f.RecordID.String()
		}
		if f.SequenceID != nil {
			seq = strconv.FormatInt(*f.SequenceID, 10)
		}
		row := []string{generated, f.CheckName, string(f.Status), string(f.Severity),
			strconv.FormatBool(f.Fatal), record, seq, f.Details}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
