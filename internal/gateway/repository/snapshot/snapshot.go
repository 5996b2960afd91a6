// Package snapshot stores what a repository looked like when it was
// imported: the root listing and language breakdown, zstd-compressed JSON.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"ghimport/internal/github"
)

var ErrNotFound = errors.New("snapshot not found")

type Snapshot struct {
	ProjectID  string            `json:"project_id"`
	UserID     string            `json:"user_id"`
	Repository github.Repository `json:"repository"`
	Branch     string            `json:"branch"`
	CapturedAt time.Time         `json:"captured_at"`
	Root       []github.Content  `json:"root"`
	Languages  github.Languages  `json:"languages"`
}

// Blobs is raw object storage.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Store reads and writes snapshots on top of a Blobs backend.
type Store struct {
	blobs Blobs
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func NewStore(blobs Blobs) (*Store, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &Store{blobs: blobs, enc: enc, dec: dec}, nil
}

// Key is the object key of a project's snapshot.
func Key(userID, projectID string) string {
	return "imports/" + strings.TrimSpace(userID) + "/" + strings.TrimSpace(projectID) + ".json.zst"
}

func (s *Store) Put(ctx context.Context, snap Snapshot) error {
	if snap.UserID == "" || snap.ProjectID == "" {
		return fmt.Errorf("snapshot needs user and project ids")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.blobs.Put(ctx, Key(snap.UserID, snap.ProjectID), s.enc.EncodeAll(raw, nil))
}

func (s *Store) Get(ctx context.Context, userID, projectID string) (Snapshot, error) {
	data, err := s.blobs.Get(ctx, Key(userID, projectID))
	if err != nil {
		return Snapshot{}, err
	}
	raw, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) Delete(ctx context.Context, userID, projectID string) error {
	err := s.blobs.Delete(ctx, Key(userID, projectID))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
