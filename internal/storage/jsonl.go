package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonlWriter appends JSON records, one per line.
type JsonlWriter struct {
	path string
	mu   sync.Mutex
}

func NewJsonlWriter(path string) *JsonlWriter {
	return &JsonlWriter{path: path}
}

// Truncate empties the file so a run starts fresh.
func (s *JsonlWriter) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ensureDir(s.path); err != nil {
		return err
	}
	return os.WriteFile(s.path, nil, 0o644)
}

// Append writes a batch of records as JSON lines.
func (s *JsonlWriter) Append(records []interface{}) error {
	if len(records) == 0 {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
