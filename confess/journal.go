package confess

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// The durable mirror is a JSON Lines journal: one confession per line,
// appended and synced on every write. Files written by older versions of the
// bot hold a single JSON array; those are read once and rewritten as a journal.

var errCorruptJournal = errors.New("corrupt confession journal")

type loadResult struct {
	records []Confession
	// rewrite is set when the file on disk does not match records as a
	// journal (legacy array, torn tail, reset after corruption).
	rewrite bool
	legacy  bool
	torn    bool
}

func decodeJournal(data []byte) (loadResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return loadResult{rewrite: len(data) > 0}, nil
	}

	if trimmed[0] == '[' {
		var records []Confession
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return loadResult{}, fmt.Errorf("%w: %v", errCorruptJournal, err)
		}
		return loadResult{records: records, rewrite: true, legacy: true}, nil
	}

	var res loadResult
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Confession
		if err := json.Unmarshal(line, &rec); err != nil {
			// A crash mid-append leaves a partial last line without its
			// newline. Drop it; anything else is real corruption.
			if isLastLine(data, lineNo) && !bytes.HasSuffix(data, []byte("\n")) {
				res.torn = true
				res.rewrite = true
				break
			}
			return loadResult{}, fmt.Errorf("%w: line %d: %v", errCorruptJournal, lineNo, err)
		}
		res.records = append(res.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return loadResult{}, fmt.Errorf("%w: %v", errCorruptJournal, err)
	}
	return res, nil
}

func isLastLine(data []byte, lineNo int) bool {
	return bytes.Count(bytes.TrimRight(data, "\n"), []byte("\n"))+1 == lineNo
}

func encodeLine(rec Confession) ([]byte, error) {
	line, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// writeSnapshot atomically replaces path with a journal holding records.
func writeSnapshot(path string, records []Confession) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := encodeLine(rec)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// quarantine keeps a copy of an unreadable file next to it before it is reset.
func quarantine(path string, data []byte) (string, error) {
	name := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return "", err
	}
	return name, nil
}
