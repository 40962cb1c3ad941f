package contracts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/slighter12/rootstock-mcp-go/logger"
)

var ErrArtifactNotFound = errors.New("contract artifact not found")

// Source resolves compiled contracts by name.
type Source interface {
	Artifact(name string) (*Artifact, error)
}

const reloadDebounce = 250 * time.Millisecond

// Store holds artifacts discovered under one directory.
type Store struct {
	dir string

	mu         sync.RWMutex
	artifacts  map[string]*Artifact
	loadErrors []string
}

// NewStore creates an empty store rooted at dir. Call Load to populate it.
func NewStore(dir string) *Store {
	return &Store{
		dir:       strings.TrimSpace(dir),
		artifacts: make(map[string]*Artifact),
	}
}

// Dir returns the artifacts directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put registers one artifact, replacing any artifact with the same name.
func (s *Store) Put(artifact *Artifact) {
	if s == nil || artifact == nil || artifact.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifact.Name] = artifact
}

// Artifact returns the named artifact.
func (s *Store) Artifact(name string) (*Artifact, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (artifacts dir %q)", ErrArtifactNotFound, name, s.dir)
	}
	return artifact, nil
}

// Names lists loaded artifact names in order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadErrors returns non-fatal errors from the last Load.
func (s *Store) LoadErrors() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.loadErrors))
	copy(out, s.loadErrors)
	return out
}

// Load walks the directory for *.json artifacts and atomically replaces the
// loaded set. Files that fail to parse are skipped and reported.
func (s *Store) Load() error {
	if s.dir == "" {
		return errors.New("artifacts dir cannot be empty")
	}

	next := make(map[string]*Artifact)
	loadErrors := make([]string, 0)

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			loadErrors = append(loadErrors, walkErr.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isArtifactFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("read %s: %v", path, err))
			return nil
		}
		fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		artifact, err := ParseArtifact(data, fallback)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		artifact.SourcePath = path
		if existing, ok := next[artifact.Name]; ok {
			loadErrors = append(loadErrors, fmt.Sprintf("duplicate artifact %q in %s and %s", artifact.Name, existing.SourcePath, path))
			return nil
		}
		next[artifact.Name] = artifact
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk artifacts dir: %w", err)
	}

	s.mu.Lock()
	s.artifacts = next
	s.loadErrors = loadErrors
	s.mu.Unlock()

	logger.Info("Contract artifacts loaded", "dir", s.dir, "count", len(next), "errors", len(loadErrors))
	if len(loadErrors) > 0 {
		return errors.New(strings.Join(loadErrors, "; "))
	}
	return nil
}

func isArtifactFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".json") && !strings.HasSuffix(base, ".dbg.json")
}

// Watch reloads the store whenever artifact files change until ctx is done.
// Bursts of events (a full recompile) are coalesced into one reload.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create artifacts watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, s.dir); err != nil {
		return err
	}
	logger.Info("Watching contract artifacts", "dir", s.dir)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := addWatchDirs(watcher, event.Name); err != nil {
						logger.Warn("Failed to watch new artifacts dir", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !isArtifactFile(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := s.Load(); err != nil {
				logger.Warn("Contract artifacts reloaded with warnings", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Artifacts watcher error", "error", err)
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
