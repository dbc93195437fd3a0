package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

type entryKey struct {
	id   string
	face zone.Face
}

// Memory is an in-process catalog.
type Memory struct {
	mu      sync.RWMutex
	entries map[entryKey]Entry
}

// NewMemory creates a catalog holding entries.
func NewMemory(entries ...Entry) *Memory {
	m := &Memory{entries: make(map[entryKey]Entry, len(entries))}
	for _, e := range entries {
		m.Put(e)
	}
	return m
}

// Put adds or replaces an entry.
func (m *Memory) Put(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{e.ID, e.Face}] = e
}

// Len returns the number of stored faces.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Lookup implements Catalog.
func (m *Memory) Lookup(_ context.Context, id string, face zone.Face) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[entryKey{id, face}]
	return e, ok, nil
}

// csvColumns is the header LoadCSV expects, in order.
var csvColumns = []string{"id", "face", "name", "type", "cost", "atk", "def", "hp", "elements"}

// ErrBadHeader is returned when a CSV file does not start with csvColumns.
var ErrBadHeader = errors.New("unexpected catalog header")

// ReadCSV parses catalog rows. Malformed rows are skipped and logged.
func ReadCSV(r io.Reader, logger *zap.Logger) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) < len(csvColumns) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}
	for i, col := range csvColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], col)
		}
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, record := range records[1:] {
		e, err := parseRecord(record)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping catalog row", zap.Int("row", i+2), zap.Error(err))
			}
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRecord(record []string) (Entry, error) {
	if len(record) < len(csvColumns) {
		return Entry{}, fmt.Errorf("insufficient columns: %d", len(record))
	}
	if strings.TrimSpace(record[0]) == "" {
		return Entry{}, errors.New("missing id")
	}
	face, err := zone.ParseFace(record[1])
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:       strings.TrimSpace(record[0]),
		Face:     face,
		Name:     strings.TrimSpace(record[2]),
		Type:     strings.ToLower(strings.TrimSpace(record[3])),
		Cost:     strings.TrimSpace(record[4]),
		Elements: SplitElements(record[8]),
	}
	for i, dst := range []*int{&e.Atk, &e.Def, &e.HP} {
		v := strings.TrimSpace(record[5+i])
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Entry{}, fmt.Errorf("column %s: %w", csvColumns[5+i], err)
		}
		*dst = n
	}
	return e, nil
}

// ReadCSVFile reads the entries stored in the CSV file at path.
func ReadCSVFile(path string, logger *zap.Logger) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	entries, err := ReadCSV(file, logger)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("loaded catalog", zap.String("path", path), zap.Int("entries", len(entries)))
	}
	return entries, nil
}

// LoadCSVFile reads path into a new Memory catalog.
func LoadCSVFile(path string, logger *zap.Logger) (*Memory, error) {
	entries, err := ReadCSVFile(path, logger)
	if err != nil {
		return nil, err
	}
	return NewMemory(entries...), nil
}
