package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
)

const (
	rawResultsFile = "raw_results.jsonl"
	profilesFile   = "profiles.json"
)

// FileStore is the JSON-file Store backend. Raw results live in an
// append-only JSONL log; profiles live in a JSON array rewritten atomically
// via temp-file-and-rename. A single mutex serializes writers so concurrent
// company workers never interleave appends.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates (if needed) the store directory and returns a FileStore.
func NewFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) rawPath() string      { return filepath.Join(s.dir, rawResultsFile) }
func (s *FileStore) profilesPath() string { return filepath.Join(s.dir, profilesFile) }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Append(ctx context.Context, r model.RawSourceResult) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "store: append cancelled")
	}

	line, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "store: marshal raw result")
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	// One retry at the store layer before the failure surfaces.
	appendErr := appendLine(s.rawPath(), line)
	if appendErr != nil {
		zap.L().Warn("store: append failed, retrying once", zap.Error(appendErr))
		appendErr = appendLine(s.rawPath(), line)
	}
	return eris.Wrap(appendErr, "store: append raw result")
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// A single O_APPEND write keeps the record contiguous; a crashed reader
	// sees either the whole line or nothing the salvage parser can't skip.
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) History(ctx context.Context, company string, source model.SourceID) ([]model.RawSourceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "store: history cancelled")
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.rawPath())
	s.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read raw results")
	}

	var results []model.RawSourceResult
	for _, obj := range decodeObjects(data) {
		var r model.RawSourceResult
		if err := json.Unmarshal(obj, &r); err != nil {
			continue
		}
		if r.Company == "" || r.Source == "" {
			continue // record lacks required keys, skippable not fatal
		}
		if r.Company == company && r.Source == source {
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *FileStore) Latest(ctx context.Context, company string, source model.SourceID) (*model.RawSourceResult, error) {
	history, err := s.History(ctx, company, source)
	if err != nil || len(history) == 0 {
		return nil, err
	}
	latest := history[0]
	for _, r := range history[1:] {
		if !r.FetchedAt.Before(latest.FetchedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (s *FileStore) SaveProfile(ctx context.Context, p model.ReconciledProfile) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "store: save profile cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.loadProfilesLocked()

	replaced := false
	for i, existing := range profiles {
		if existing.Company == p.Company {
			profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, p)
	}

	writeErr := s.writeProfilesLocked(profiles)
	if writeErr != nil {
		zap.L().Warn("store: profile write failed, retrying once", zap.Error(writeErr))
		writeErr = s.writeProfilesLocked(profiles)
	}
	return eris.Wrapf(writeErr, "store: save profile %s", p.Company)
}

// writeProfilesLocked writes the profile array to a temp file in the same
// directory and renames it into place, so readers never observe a partial
// record. Caller holds s.mu.
func (s *FileStore) writeProfilesLocked(profiles []model.ReconciledProfile) error {
	if profiles == nil {
		profiles = []model.ReconciledProfile{}
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, profilesFile+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.profilesPath())
}

// loadProfilesLocked reads whatever profile records can be recovered from
// disk, legacy formats included. Caller holds s.mu.
func (s *FileStore) loadProfilesLocked() []model.ReconciledProfile {
	data, err := os.ReadFile(s.profilesPath())
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("store: read profiles failed", zap.Error(err))
		}
		return nil
	}

	var profiles []model.ReconciledProfile
	for _, obj := range decodeObjects(data) {
		var p model.ReconciledProfile
		if err := json.Unmarshal(obj, &p); err != nil {
			continue
		}
		if p.Company == "" {
			continue
		}
		p.Persisted = true
		profiles = append(profiles, p)
	}
	return profiles
}

func (s *FileStore) LoadProfile(ctx context.Context, company string) (*model.ReconciledProfile, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Company == company {
			return &profiles[i], nil
		}
	}
	return nil, nil
}

func (s *FileStore) ListProfiles(ctx context.Context) ([]model.ReconciledProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list profiles cancelled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadProfilesLocked(), nil
}

func (s *FileStore) IsCompleted(ctx context.Context, company string) (bool, error) {
	p, err := s.LoadProfile(ctx, company)
	return p != nil, err
}

func (s *FileStore) CompletedCompanies(ctx context.Context) (map[string]bool, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		completed[p.Company] = true
	}
	return completed, nil
}

// Normalize rewrites a legacy or degraded profiles file as a clean JSON
// array, keeping a .bak copy of the original. Returns the number of
// recovered profiles.
func (s *FileStore) Normalize(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "store: normalize cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	original, err := os.ReadFile(s.profilesPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "store: read profiles")
	}
	if err := os.WriteFile(s.profilesPath()+".bak", original, 0o644); err != nil {
		return 0, eris.Wrap(err, "store: write backup")
	}

	profiles := s.loadProfilesLocked()
	if err := s.writeProfilesLocked(profiles); err != nil {
		return 0, eris.Wrap(err, "store: rewrite profiles")
	}
	return len(profiles), nil
}
