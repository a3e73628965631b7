// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

// Package artifact provides durable persistence for trained model artifacts.
//
// Artifacts are serialized using Go's gob encoding, compressed with gzip,
// and stored with metadata including a SHA-256 checksum to detect corruption
// on load. The production set (classifier, regressor, scaler) lives directly
// in the base directory; timestamped backup snapshots live in subdirectories
// and enable rollback when a candidate model underperforms.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Production swaps are staged in
// a temporary directory and moved into place file by file, so a reader never
// observes a partially written artifact.
package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsight/shopsight/internal/model"
)

// Artifact file names within a production or backup directory.
const (
	fileClassifier = "churn_model.gob.gz"
	fileRegressor  = "spending_model.gob.gz"
	fileScaler     = "scaler.gob.gz"
)

// backupDirLayout is the timestamp layout for backup snapshot directories.
const backupDirLayout = "20060102_150405"

// backupDirPrefix marks backup snapshot directories under the base dir.
const backupDirPrefix = "models_"

// ErrNotFound indicates no production artifact set exists yet.
var ErrNotFound = errors.New("artifact: no production models found")

// Metadata describes a stored artifact file.
type Metadata struct {
	// Name identifies the artifact ("churn_model", "spending_model", "scaler").
	Name string `json:"name"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 checksum of the uncompressed gob data.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed artifact size in bytes.
	SizeBytes int64 `json:"size_bytes"`
}

// storedFile is the on-disk format for artifact files.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages production artifacts and backup snapshots under a base
// directory.
type Store struct {
	baseDir string
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// NewStore creates an artifact store rooted at baseDir, creating the
// directory if needed.
func NewStore(baseDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	return &Store{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "artifact").Logger(),
	}, nil
}

// HasProduction reports whether a complete production artifact set exists.
func (s *Store) HasProduction() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range []string{fileClassifier, fileRegressor, fileScaler} {
		if _, err := os.Stat(filepath.Join(s.baseDir, name)); err != nil {
			return false
		}
	}
	return true
}

// LoadProduction loads the current production artifact set. Returns
// ErrNotFound when no set has been deployed yet.
func (s *Store) LoadProduction() (*model.ArtifactSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadSetFrom(s.baseDir)
}

// loadSetFrom reads a complete artifact set from dir.
func (s *Store) loadSetFrom(dir string) (*model.ArtifactSet, error) {
	var set model.ArtifactSet

	var classifier model.Classifier
	if err := readArtifact(filepath.Join(dir, fileClassifier), &classifier); err != nil {
		return nil, err
	}
	set.Classifier = &classifier

	var regressor model.Regressor
	if err := readArtifact(filepath.Join(dir, fileRegressor), &regressor); err != nil {
		return nil, err
	}
	set.Regressor = &regressor

	var scaler model.Scaler
	if err := readArtifact(filepath.Join(dir, fileScaler), &scaler); err != nil {
		return nil, err
	}
	set.Scaler = &scaler

	return &set, nil
}

// SwapProduction atomically replaces the production artifact set. The new
// set is fully written to a staging directory first; only then are the
// production files replaced one rename at a time.
func (s *Store) SwapProduction(set *model.ArtifactSet) error {
	if set == nil || set.Classifier == nil || set.Regressor == nil || set.Scaler == nil {
		return errors.New("artifact: incomplete artifact set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staging, err := os.MkdirTemp(s.baseDir, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }() //nolint:errcheck // best-effort staging cleanup

	if err := writeSetTo(staging, set); err != nil {
		return err
	}

	for _, name := range []string{fileClassifier, fileRegressor, fileScaler} {
		src := filepath.Join(staging, name)
		dst := filepath.Join(s.baseDir, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}

	s.logger.Info().Str("dir", s.baseDir).Msg("production models replaced")
	return nil
}

// writeSetTo serializes all three artifacts into dir.
func writeSetTo(dir string, set *model.ArtifactSet) error {
	if err := writeArtifact(filepath.Join(dir, fileClassifier), "churn_model", set.Classifier); err != nil {
		return err
	}
	if err := writeArtifact(filepath.Join(dir, fileRegressor), "spending_model", set.Regressor); err != nil {
		return err
	}
	return writeArtifact(filepath.Join(dir, fileScaler), "scaler", set.Scaler)
}

// Backup snapshots the current production set into a timestamped directory
// and returns the snapshot path. Returns ErrNotFound when no production set
// exists to back up.
func (s *Store) Backup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.loadSetFrom(s.baseDir)
	if err != nil {
		return "", err
	}

	name := backupDirPrefix + time.Now().UTC().Format(backupDirLayout)
	dir := filepath.Join(s.baseDir, name)

	// Timestamp resolution is one second; disambiguate rapid backups.
	for i := 1; ; i++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = filepath.Join(s.baseDir, fmt.Sprintf("%s_%d", name, i))
	}

	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	if err := writeSetTo(dir, set); err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup of partial backup
		return "", err
	}

	s.logger.Info().Str("backup", dir).Msg("backed up production models")
	return dir, nil
}

// RestoreLatestBackup replaces the production set with the most recent
// backup snapshot. Returns false without error when no backups exist.
func (s *Store) RestoreLatestBackup() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs, err := s.backupDirsLocked()
	if err != nil {
		return false, err
	}
	if len(dirs) == 0 {
		return false, nil
	}

	latest := dirs[len(dirs)-1]
	set, err := s.loadSetFrom(latest)
	if err != nil {
		return false, fmt.Errorf("load backup %s: %w", filepath.Base(latest), err)
	}

	staging, err := os.MkdirTemp(s.baseDir, ".staging-*")
	if err != nil {
		return false, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }() //nolint:errcheck // best-effort staging cleanup

	if err := writeSetTo(staging, set); err != nil {
		return false, err
	}

	for _, name := range []string{fileClassifier, fileRegressor, fileScaler} {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(s.baseDir, name)); err != nil {
			return false, fmt.Errorf("restore %s: %w", name, err)
		}
	}

	s.logger.Info().Str("backup", latest).Msg("restored production models from backup")
	return true, nil
}

// ListBackups returns backup snapshot directory paths, oldest first.
func (s *Store) ListBackups() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backupDirsLocked()
}

// backupDirsLocked scans the base dir for backup snapshots, sorted oldest
// first. The timestamped naming makes lexical order chronological.
func (s *Store) backupDirsLocked() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read artifact directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), backupDirPrefix) {
			continue
		}
		dirs = append(dirs, filepath.Join(s.baseDir, entry.Name()))
	}

	sort.Strings(dirs)
	return dirs, nil
}

// writeArtifact serializes data as gob, records a SHA-256 checksum,
// compresses, and writes the file via temp-file rename.
func writeArtifact(path, name string, data interface{}) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		Metadata: Metadata{
			Name:      name,
			SavedAt:   time.Now().UTC(),
			Checksum:  hex.EncodeToString(hash[:]),
			SizeBytes: int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	tmpName := tmp.Name()

	fileEnc := gob.NewEncoder(tmp)
	if err := fileEnc.Encode(sf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("install %s: %w", name, err)
	}
	return nil
}

// readArtifact reads, decompresses, checksum-verifies, and gob-decodes an
// artifact file into target. A missing file maps to ErrNotFound.
func readArtifact(path string, target interface{}) error {
	f, err := os.Open(path) //nolint:gosec // path is constructed from trusted store configuration
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("open artifact file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&sf); err != nil {
		return fmt.Errorf("read artifact file %s: %w", filepath.Base(path), err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return fmt.Errorf("decompress %s: %w", sf.Metadata.Name, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s",
			sf.Metadata.Name, sf.Metadata.Checksum, checksum)
	}

	rawDec := gob.NewDecoder(bytes.NewReader(rawData))
	if err := rawDec.Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", sf.Metadata.Name, err)
	}
	return nil
}
