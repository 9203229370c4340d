package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister stores the snapshot as a JSON document on disk.
// Writes go to a temporary file in the same directory and are renamed into
// place, so a crash never leaves a half-written snapshot behind.
type FilePersister struct {
	Path string
}

// Load reads the snapshot file. A missing file is not an error.
func (p FilePersister) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus snapshot %s: %w", p.Path, err)
	}
	return DecodeSnapshot(data)
}

// Save replaces the snapshot file.
func (p FilePersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return writeFileAtomic(p.Path, data, 0o644)
}

// EncodeSnapshot serializes a snapshot to JSON.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode corpus snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode corpus snapshot: %w", err)
	}
	if snap.TotalDocuments < 0 {
		return nil, fmt.Errorf("decode corpus snapshot: negative document count %d", snap.TotalDocuments)
	}
	out := snap.Clone()
	return &out, nil
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_corpus_*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// MemoryPersister keeps the last saved snapshot in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

// Load returns a copy of the last saved snapshot, or nil.
func (p *MemoryPersister) Load(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		return nil, nil
	}
	out := p.snap.Clone()
	return &out, nil
}

// Save stores a copy of snap.
func (p *MemoryPersister) Save(ctx context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := snap.Clone()
	p.snap = &cp
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
