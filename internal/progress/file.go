package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/kotoba/internal/domain"
)

// Backend persists the collection of scheduling records.
type Backend interface {
	Load(ctx context.Context) (map[int]domain.SchedulingState, error)
	Save(ctx context.Context, records map[int]domain.SchedulingState) error
}

// FileBackend keeps progress as a JSON array in a single file.
type FileBackend struct {
	path     string
	validate *validator.Validate
}

// NewFileBackend returns a backend reading and writing path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, validate: NewValidator()}
}

// Load reads every record. A missing file is reported as ErrIO wrapping
// fs.ErrNotExist; see IsMissing.
func (b *FileBackend) Load(ctx context.Context) (map[int]domain.SchedulingState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading progress %s: %w", ErrIO, b.path, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding progress %s: %w", ErrFormat, b.path, err)
	}

	states := make(map[int]domain.SchedulingState, len(records))
	for i, r := range records {
		if err := b.validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: progress entry %d: %w", ErrFormat, i, err)
		}
		if _, dup := states[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate progress id %d", ErrFormat, r.ID)
		}
		s, err := r.state()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		states[r.ID] = s
	}
	return states, nil
}

// Save replaces the file with records, ordered by id.
func (b *FileBackend) Save(ctx context.Context, records map[int]domain.SchedulingState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ids := make([]int, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]record, 0, len(ids))
	for _, id := range ids {
		out = append(out, newRecord(id, records[id]))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding progress: %w", ErrFormat, err)
	}
	if err := writeFileAtomic(b.path, data); err != nil {
		return fmt.Errorf("%w: writing progress %s: %w", ErrIO, b.path, err)
	}
	return nil
}

// writeFileAtomic writes data to path using a temp file in the same directory
// and a rename, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-progress-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
