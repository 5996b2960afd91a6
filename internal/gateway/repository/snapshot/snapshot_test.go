package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghimport/internal/github"
)

func TestStore_RoundTripCompressed(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobs()
	store, err := NewStore(blobs)
	require.NoError(t, err)

	snap := Snapshot{
		ProjectID:  "42-main-1700000000000",
		UserID:     "alice",
		Repository: github.Repository{ID: 42, FullName: "octo/hello"},
		Branch:     "main",
		CapturedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Root:       []github.Content{{Name: "README.md", Path: "README.md", Type: github.ContentTypeFile}},
		Languages:  github.Languages{"Go": 100},
	}
	require.NoError(t, store.Put(ctx, snap))

	raw, err := blobs.Get(ctx, "imports/alice/42-main-1700000000000.json.zst")
	require.NoError(t, err)
	// zstd frame magic number
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	got, err := store.Get(ctx, "alice", snap.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Delete(ctx, "alice", snap.ProjectID))
	_, err = store.Get(ctx, "alice", snap.ProjectID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "alice", snap.ProjectID))
}

func TestStore_RequiresIDs(t *testing.T) {
	store, err := NewStore(NewMemoryBlobs())
	require.NoError(t, err)
	assert.Error(t, store.Put(context.Background(), Snapshot{UserID: "alice"}))
}

func TestNewS3Blobs_Validation(t *testing.T) {
	_, err := NewS3Blobs(S3Config{})
	assert.Error(t, err)
	_, err = NewS3Blobs(S3Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)
	_, err = NewS3Blobs(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.Error(t, err)

	s, err := NewS3Blobs(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "imports/alice/p1.json.zst", Key(" alice ", "p1"))
}
