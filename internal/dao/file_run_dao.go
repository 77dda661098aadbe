package dao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"provisioner/internal/models"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const runFileExt = ".yaml"

var _ RunDAO = (*FileRunDAO)(nil)

// FileRunDAO stores one YAML document per run in a directory. The in-memory
// index is rebuilt on open and kept current by Watch.
type FileRunDAO struct {
	dir    string
	logger *logger.Logger
	mu     sync.RWMutex
	index  map[string]models.Run
	now    func() time.Time
}

func NewFileRunDAO(dir string, log *logger.Logger) (*FileRunDAO, error) {
	if dir == "" {
		return nil, perrors.NewConfigError("history.dir", dir, "history directory is required for the file driver")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Default()
	}

	d := &FileRunDAO{
		dir:    dir,
		logger: log,
		index:  make(map[string]models.Run),
		now:    time.Now,
	}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dir returns the directory the runs are stored in.
func (d *FileRunDAO) Dir() string {
	return d.dir
}

func (d *FileRunDAO) reload() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read history directory %s: %w", d.dir, err)
	}

	index := make(map[string]models.Run, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isRunFile(entry.Name()) {
			continue
		}
		run, err := readRunFile(filepath.Join(d.dir, entry.Name()))
		if err != nil {
			d.logger.WithFields(logger.Fields{"file": entry.Name()}).WithError(err).Warn("Skipping unreadable run record")
			continue
		}
		index[run.UUID] = *run
	}

	d.mu.Lock()
	d.index = index
	d.mu.Unlock()
	return nil
}

func isRunFile(name string) bool {
	if !strings.HasSuffix(name, runFileExt) {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(name, runFileExt))
	return err == nil
}

func readRunFile(path string) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run models.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	expected := strings.TrimSuffix(filepath.Base(path), runFileExt)
	if run.UUID != expected {
		return nil, fmt.Errorf("run record %s has mismatched uuid %q", path, run.UUID)
	}
	return &run, nil
}

func (d *FileRunDAO) path(id string) string {
	return filepath.Join(d.dir, id+runFileExt)
}

// SaveRun writes the run atomically (temp file plus rename) and indexes it.
func (d *FileRunDAO) SaveRun(run *models.Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if _, err := uuid.Parse(run.UUID); err != nil {
		return fmt.Errorf("invalid run uuid %q: %w", run.UUID, err)
	}

	now := d.now().Unix()
	if run.CreatedAt == 0 {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.UUID, err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+run.UUID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write run %s: %w", run.UUID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write run %s: %w", run.UUID, err)
	}
	if err := os.Rename(tmpName, d.path(run.UUID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store run %s: %w", run.UUID, err)
	}

	d.mu.Lock()
	d.index[run.UUID] = *run
	d.mu.Unlock()
	return nil
}

func (d *FileRunDAO) GetRunByUUID(id string) (*models.Run, error) {
	d.mu.RLock()
	run, ok := d.index[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", perrors.ErrRunNotFound, id)
	}
	return &run, nil
}

func (d *FileRunDAO) ListRuns() ([]models.Run, error) {
	runs := d.sorted()
	if len(runs) > listLimit {
		runs = runs[:listLimit]
	}
	return runs, nil
}

func (d *FileRunDAO) ListRunsWithPagination(page, limit int) ([]models.Run, int64, error) {
	page, limit = NormalizePage(page, limit)
	runs := d.sorted()
	total := int64(len(runs))

	offset := (page - 1) * limit
	if offset >= len(runs) {
		return []models.Run{}, total, nil
	}
	end := offset + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], total, nil
}

// sorted returns a snapshot of all runs, newest first.
func (d *FileRunDAO) sorted() []models.Run {
	d.mu.RLock()
	runs := make([]models.Run, 0, len(d.index))
	for _, run := range d.index {
		runs = append(runs, run)
	}
	d.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt != runs[j].StartedAt {
			return runs[i].StartedAt > runs[j].StartedAt
		}
		return runs[i].UUID < runs[j].UUID
	})
	return runs
}

func (d *FileRunDAO) DeleteRun(id string) error {
	d.mu.Lock()
	_, ok := d.index[id]
	delete(d.index, id)
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", perrors.ErrRunNotFound, id)
	}
	if err := os.Remove(d.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// Watch keeps the index in sync with files written or removed by other
// processes. It blocks until ctx is done. ready, when non-nil, is closed once
// the watcher is registered.
func (d *FileRunDAO) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create history watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}

	// Pick up anything written between open and watcher registration.
	if err := d.reload(); err != nil {
		return err
	}
	d.logger.WithFields(logger.Fields{"dir": d.dir}).Info("Watching run history")
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			d.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.WithFields(logger.Fields{"dir": d.dir}).WithError(err).Error("History watcher error")

		case <-ctx.Done():
			d.logger.WithFields(logger.Fields{"dir": d.dir}).Info("Stopping run history watcher")
			return nil
		}
	}
}

func (d *FileRunDAO) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !isRunFile(name) {
		return
	}
	id := strings.TrimSuffix(name, runFileExt)

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		d.mu.Lock()
		delete(d.index, id)
		d.mu.Unlock()
		d.logger.WithFields(logger.Fields{"run_id": id}).Debug("Run record removed")

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		run, err := readRunFile(event.Name)
		if err != nil {
			// A partial write is retried on the next event.
			d.logger.WithFields(logger.Fields{"run_id": id}).WithError(err).Debug("Run record not readable yet")
			return
		}
		d.mu.Lock()
		d.index[id] = *run
		d.mu.Unlock()
		d.logger.WithFields(logger.Fields{"run_id": id}).Debug("Run record indexed")
	}
}
