package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[vector]
url = "http://localhost:6333"
collection = "docs"

[embedding]
batch_size = 32

[embedding.ollama]
base_url = "http://localhost:11434"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:6333", store.GetString("vector.url"))
	assert.Equal(t, "docs", store.GetString("vector.collection"))
	assert.Equal(t, 32, store.GetInt("embedding.batch_size"))
	assert.Equal(t, "http://localhost:11434", store.GetString("embedding.ollama.base_url"))
}

func TestConfigStore_GetTypeMismatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("server.addr", ":9090"))
	require.NoError(t, store.Set("embedding.batch_size", 8))

	assert.Equal(t, 0, store.GetInt("server.addr"))
	assert.Equal(t, "", store.GetString("embedding.batch_size"))
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("vector.url", "http://qdrant:6333"))
	require.NoError(t, store.Set("embedding.batch_size", 4))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[vector]")
	assert.Contains(t, string(raw), "[embedding]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "http://qdrant:6333", reloaded.GetString("vector.url"))
	assert.Equal(t, 4, reloaded.GetInt("embedding.batch_size"))
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["blob.base_url"] = "file:///srv/blobs"
	store.mu.Unlock()

	require.NoError(t, store.Save())

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/blobs", reloaded.GetString("blob.base_url"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("vector.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Load_NonExistentResets(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("vector.url", "x"))
	require.NoError(t, os.Remove(store.Path()))

	require.NoError(t, store.Load())
	assert.Equal(t, "", store.GetString("vector.url"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("embedding.batch_size", n)
			_ = store.GetInt("embedding.batch_size")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("embedding.batch_size")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"top":   true,
	})

	a, ok := nested["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, a["b"])
	c, ok := a["c"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", c["d"])
	assert.Equal(t, true, nested["top"])

	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "top": true}, flattenMap(nested, ""))
}
