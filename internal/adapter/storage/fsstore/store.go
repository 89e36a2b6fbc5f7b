// Package fsstore keeps each job's media in an isolated directory under the
// data dir. Isolation is by construction: paths are derived from the job id,
// so concurrent jobs never see each other's files.
package fsstore

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"mediabot/internal/domain"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/infrastructure/metrics"
	"mediabot/internal/port"
)

// leakEscalationStreak is how many consecutive sweeps must reclaim something
// before the store reports a leak as an operational signal.
const leakEscalationStreak = 3

type Store struct {
	root string

	mu         sync.Mutex
	seq        map[string]int
	leakStreak int
}

func NewStore(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, "assets")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}
	return &Store{
		root: root,
		seq:  make(map[string]int),
	}, nil
}

func (s *Store) jobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *Store) nextName(jobID, prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[jobID]++
	return fmt.Sprintf("%s_%03d", prefix, s.seq[jobID])
}

func (s *Store) Stage(r io.Reader, jobID string, kind domain.MediaKind) (domain.AssetHandle, error) {
	dir := s.jobDir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.AssetHandle{}, fmt.Errorf("create job dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "stage_*")
	if err != nil {
		return domain.AssetHandle{}, fmt.Errorf("create staging file: %w", err)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return domain.AssetHandle{}, fmt.Errorf("init digest: %w", err)
	}

	size, err := io.Copy(tmp, io.TeeReader(r, hasher))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return domain.AssetHandle{}, fmt.Errorf("write asset: %w", err)
	}

	name := s.nextName(jobID, "in")
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return domain.AssetHandle{}, fmt.Errorf("finalize asset: %w", err)
	}

	metrics.AssetBytesStaged.Add(float64(size))

	return domain.AssetHandle{
		ID:     name,
		JobID:  jobID,
		Kind:   kind,
		Path:   path,
		Size:   size,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *Store) StageFile(path, jobID string, kind domain.MediaKind) (domain.AssetHandle, error) {
	dir := s.jobDir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.AssetHandle{}, fmt.Errorf("create job dir: %w", err)
	}

	size, digest, err := digestFile(path)
	if err != nil {
		return domain.AssetHandle{}, fmt.Errorf("digest asset: %w", err)
	}

	name := s.nextName(jobID, "out") + filepath.Ext(path)
	dest := filepath.Join(dir, name)
	if err := os.Rename(path, dest); err != nil {
		return domain.AssetHandle{}, fmt.Errorf("adopt asset: %w", err)
	}

	metrics.AssetBytesStaged.Add(float64(size))

	return domain.AssetHandle{
		ID:     name,
		JobID:  jobID,
		Kind:   kind,
		Path:   dest,
		Size:   size,
		Digest: digest,
	}, nil
}

func digestFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = f.Close() }()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	size, err := io.Copy(hasher, f)
	if err != nil {
		return 0, "", err
	}
	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *Store) Open(h domain.AssetHandle) (io.ReadCloser, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) Release(h domain.AssetHandle) error {
	if h.Empty() {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release asset %s: %w", h.ID, err)
	}
	return nil
}

func (s *Store) ReleaseJob(jobID string) error {
	if err := os.RemoveAll(s.jobDir(jobID)); err != nil {
		return fmt.Errorf("release job assets: %w", err)
	}
	s.mu.Lock()
	delete(s.seq, jobID)
	s.mu.Unlock()
	return nil
}

func (s *Store) ScratchPath(jobID, name string) string {
	return filepath.Join(s.jobDir(jobID), name)
}

// Sweep removes every asset older than ttl, whatever state its job is in.
// Normal release should beat the sweep to it; a sweep that keeps finding work
// indicates a release path is leaking, which is escalated once the streak
// reaches leakEscalationStreak.
func (s *Store) Sweep(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	reclaimed := 0

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read asset root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())

		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		stale := 0
		for _, file := range files {
			info, err := file.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, file.Name())); err == nil {
					stale++
				}
			}
		}
		reclaimed += stale

		// Drop the job dir once it is empty and old enough.
		if remaining, err := os.ReadDir(dir); err == nil && len(remaining) == 0 {
			if info, err := entry.Info(); err == nil && info.ModTime().Before(cutoff) {
				_ = os.Remove(dir)
			}
		}
	}

	s.noteSweep(reclaimed)
	return reclaimed, nil
}

func (s *Store) noteSweep(reclaimed int) {
	metrics.SweepReclaimedTotal.Add(float64(reclaimed))

	s.mu.Lock()
	defer s.mu.Unlock()
	if reclaimed == 0 {
		s.leakStreak = 0
		return
	}
	s.leakStreak++
	logger.Info.Printf("sweep reclaimed %d stale assets", reclaimed)
	if s.leakStreak >= leakEscalationStreak {
		logger.Warn.Printf("asset sweep reclaimed work %d times in a row; a release path is likely leaking", s.leakStreak)
	}
}

var _ port.AssetStore = (*Store)(nil)
