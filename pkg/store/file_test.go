package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwire/livewatch/pkg/domain"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sent.json")
	fs := NewFileStore(path)

	st := domain.NewDedupState()
	st.SentLinks["https://x/live#p1"] = struct{}{}
	st.SentPostIDs["p1"] = struct{}{}
	st.RecentTitles["storm"] = []string{"first title", "second title"}

	require.NoError(t, fs.Save(ctx, st))

	loaded, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.SentLinks, loaded.SentLinks)
	assert.Equal(t, st.SentPostIDs, loaded.SentPostIDs)
	assert.Equal(t, st.RecentTitles, loaded.RecentTitles)
}

func TestFileStore_MissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	st, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.SentLinks)
	assert.Empty(t, st.SentPostIDs)
	assert.Empty(t, st.RecentTitles)
}

func TestFileStore_LegacyListUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	legacy := `["https://x/live#p1", "https://x/live#p2"]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	st, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, st.SentLinks, 2)
	assert.Contains(t, st.SentLinks, "https://x/live#p1")
	assert.Contains(t, st.SentLinks, "https://x/live#p2")
	assert.Empty(t, st.SentPostIDs, "no entries invented during upgrade")
	assert.Empty(t, st.RecentTitles)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}
