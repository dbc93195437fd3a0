package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Replay is the sequence of snapshots taken over one table's life.
type Replay struct {
	TableID      string
	States       []*Snapshot
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(tableID string) *Replay {
	return &Replay{
		TableID: tableID,
		States:  make([]*Snapshot, 0),
	}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, s)
}

// Start rewinds to the first snapshot.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next returns the snapshot at the cursor and advances it.
func (r *Replay) Next() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		s := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return s
	}
	return nil
}

// Previous steps the cursor back and returns that snapshot.
func (r *Replay) Previous() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Skip moves the cursor by count, clamped to the recorded range.
func (r *Replay) Skip(count int) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.CurrentIndex + count
	if idx >= len(r.States) {
		idx = len(r.States) - 1
	}
	if idx < 0 {
		idx = 0
	}
	r.CurrentIndex = idx
	if idx < len(r.States) {
		return r.States[idx]
	}
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.States)
}

// StateAt returns the snapshot at index, or nil.
func (r *Replay) StateAt(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.States) {
		return r.States[index]
	}
	return nil
}

// Latest returns the most recent snapshot, or nil.
func (r *Replay) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// replayVersion is bumped whenever Snapshot changes shape.
const replayVersion = 1

type replayMetadata struct {
	TableID    string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// SaveToFile writes the replay to <directory>/<table id>.replay as gzipped
// gob, creating directory if needed.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(filepath.Join(directory, r.TableID+".replay"))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	meta := replayMetadata{
		TableID:    r.TableID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, s := range r.States {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, tableID string) (*Replay, error) {
	file, err := os.Open(filepath.Join(directory, tableID+".replay"))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var meta replayMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", meta.Version)
	}

	replay := NewReplay(meta.TableID)
	for i := 0; i < meta.StateCount; i++ {
		var s Snapshot
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, &s)
	}
	return replay, nil
}

// ReplayRecorder keeps a replay per table.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	enabled map[string]bool
	limit   int
	saveDir string
}

// NewReplayRecorder creates a recorder. A positive limit caps how many
// snapshots each replay keeps; older ones are dropped first.
func NewReplayRecorder(logger *zap.Logger, limit int) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		limit:   limit,
	}
}

// SetSaveDir makes SaveReplay write replays under dir. Empty disables saving.
func (rr *ReplayRecorder) SetSaveDir(dir string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.saveDir = dir
}

// StartRecording begins a fresh replay for tableID.
func (rr *ReplayRecorder) StartRecording(tableID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[tableID] = NewReplay(tableID)
	rr.enabled[tableID] = true

	if rr.logger != nil {
		rr.logger.Info("started replay recording", zap.String("table_id", tableID))
	}
}

// StopRecording keeps the replay but records nothing further.
func (rr *ReplayRecorder) StopRecording(tableID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.enabled[tableID] = false
}

// RecordState appends s to tableID's replay if recording is enabled.
func (rr *ReplayRecorder) RecordState(tableID string, s *Snapshot) {
	rr.mu.RLock()
	enabled := rr.enabled[tableID]
	replay := rr.replays[tableID]
	rr.mu.RUnlock()

	if !enabled || replay == nil || s == nil {
		return
	}

	replay.mu.Lock()
	replay.States = append(replay.States, s)
	if rr.limit > 0 && len(replay.States) > rr.limit {
		drop := len(replay.States) - rr.limit
		replay.States = append(replay.States[:0:0], replay.States[drop:]...)
		replay.CurrentIndex -= drop
		if replay.CurrentIndex < 0 {
			replay.CurrentIndex = 0
		}
	}
	size := len(replay.States)
	replay.mu.Unlock()

	if rr.logger != nil {
		rr.logger.Debug("recorded replay state",
			zap.String("table_id", tableID),
			zap.Int("state_count", size),
		)
	}
}

// GetReplay returns the replay for tableID.
func (rr *ReplayRecorder) GetReplay(tableID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	replay, ok := rr.replays[tableID]
	return replay, ok
}

// Verify recomputes the checksum of every recorded snapshot against the
// one the caller stored, returning the index of the first mismatch.
func (rr *ReplayRecorder) Verify(tableID string, sums []Checksum) (int, error) {
	replay, ok := rr.GetReplay(tableID)
	if !ok {
		return -1, fmt.Errorf("no replay found for table %s", tableID)
	}
	replay.mu.RLock()
	defer replay.mu.RUnlock()
	if len(sums) != len(replay.States) {
		return -1, fmt.Errorf("replay %s has %d states, %d checksums given", tableID, len(replay.States), len(sums))
	}
	for i, s := range replay.States {
		ok, err := s.VerifyChecksum(sums[i])
		if err != nil {
			return i, err
		}
		if !ok {
			return i, nil
		}
	}
	return -1, nil
}

// ClearReplay drops tableID's replay.
func (rr *ReplayRecorder) ClearReplay(tableID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, tableID)
	delete(rr.enabled, tableID)

	if rr.logger != nil {
		rr.logger.Debug("cleared replay from memory", zap.String("table_id", tableID))
	}
}

// IsRecording reports whether tableID is being recorded.
func (rr *ReplayRecorder) IsRecording(tableID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.enabled[tableID]
}

// SaveReplay removes tableID's replay from memory, writing it to the save
// directory first when one is set.
func (rr *ReplayRecorder) SaveReplay(tableID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[tableID]
	dir := rr.saveDir
	delete(rr.replays, tableID)
	delete(rr.enabled, tableID)
	rr.mu.Unlock()

	if !ok {
		return fmt.Errorf("no replay found for table %s", tableID)
	}
	if dir == "" || replay.Size() == 0 {
		return nil
	}
	if err := replay.SaveToFile(dir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("table_id", tableID),
			zap.Int("state_count", replay.Size()),
			zap.String("directory", dir),
		)
	}
	return nil
}

// LoadReplay reads tableID's replay back from the save directory.
func (rr *ReplayRecorder) LoadReplay(tableID string) (*Replay, error) {
	rr.mu.RLock()
	dir := rr.saveDir
	rr.mu.RUnlock()
	if dir == "" {
		return nil, fmt.Errorf("no replay directory configured")
	}
	return LoadReplayFromFile(dir, tableID)
}
