package confess

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"
)

const ExportFileName = "confessions_log.csv"

var exportHeader = []string{"Confession ID", "User ID", "Username", "Timestamp", "Confession"}

// ExportCSV renders records for the admin log download. Line breaks inside a
// confession are flattened so each record stays on one spreadsheet row.
func ExportCSV(records []Confession) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, c := range records {
		row := []string{
			c.AnonymousID,
			c.SubmitterID.String(),
			c.SubmitterName,
			c.CreatedAt.UTC().Format(time.RFC3339Nano),
			flattenLines(c.Body),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func flattenLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
