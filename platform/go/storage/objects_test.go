package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreCheckAndDelete(t *testing.T) {
	base := t.TempDir()
	store := NewLocalStore(base)
	ctx := context.Background()

	require.NoError(t, store.Check(ctx, "media", "photographers/0f8fad5b/"))
	require.DirExists(t, filepath.Join(base, "media", "photographers", "0f8fad5b"))

	loc := ObjectLocation{Bucket: "media", FullPath: "photographers/0f8fad5b/studios/7/abc-front.jpg"}
	file := filepath.Join(base, "media", filepath.FromSlash(loc.FullPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("jpeg"), 0o644))

	require.NoError(t, store.Delete(ctx, loc))
	require.NoFileExists(t, file)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, loc))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	err := store.Delete(context.Background(), ObjectLocation{Bucket: "media", FullPath: "../../etc/passwd"})
	require.ErrorContains(t, err, "escapes")

	require.Error(t, store.Check(context.Background(), "", "x"))
}
