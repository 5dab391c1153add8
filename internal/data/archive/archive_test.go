package archive

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
)

func openAll(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()
	out := map[string]KV{}
	for _, driver := range []string{DriverMemory, DriverBolt, DriverSQLite} {
		kv, err := Open(driver, filepath.Join(dir, "nested", "archive."+driver))
		require.NoError(t, err, driver)
		t.Cleanup(func() { _ = kv.Close() })
		out[driver] = kv
	}
	return out
}

func TestKVContract(t *testing.T) {
	for driver, kv := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			_, err := kv.Get("annotations:missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.True(t, annotation.IsNotFound(err))

			keys, err := kv.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)

			require.NoError(t, kv.Put("annotations:b", []byte(`{"v":1}`)))
			require.NoError(t, kv.Put("annotations:a", []byte(`{"v":2}`)))
			require.NoError(t, kv.Put("annotations:b", []byte(`{"v":3}`)))

			v, err := kv.Get("annotations:b")
			require.NoError(t, err)
			assert.Equal(t, `{"v":3}`, string(v))

			keys, err = kv.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"annotations:a", "annotations:b"}, keys)

			require.NoError(t, kv.Delete("annotations:a"))
			assert.ErrorIs(t, kv.Delete("annotations:a"), ErrNotFound)
			_, err = kv.Get("annotations:a")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	for driver, kv := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			value := []byte("abc")
			require.NoError(t, kv.Put("k", value))
			value[0] = 'x'

			got, err := kv.Get("k")
			require.NoError(t, err)
			got[1] = 'y'

			again, err := kv.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "abc", string(again))
		})
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(dir, "reopen."+driver)
			kv, err := Open(driver, path)
			require.NoError(t, err)
			require.NoError(t, kv.Put("annotations:session", []byte("payload")))
			require.NoError(t, kv.Close())

			kv, err = Open(driver, path)
			require.NoError(t, err)
			defer kv.Close()
			v, err := kv.Get("annotations:session")
			require.NoError(t, err)
			assert.Equal(t, "payload", string(v))
		})
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("redis", filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, `unknown archive driver "redis"`)

	_, err = Open(DriverBolt, "")
	assert.ErrorContains(t, err, "empty path")
}

func TestSQLiteUpdatedAt(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "a.sqlite"))
	require.NoError(t, err)
	defer kv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	require.NoError(t, kv.Put("k", []byte("v")))

	at, err := kv.UpdatedAt("k")
	require.NoError(t, err)
	assert.Equal(t, now, at)

	_, err = kv.UpdatedAt("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKVConcurrent(t *testing.T) {
	kv := NewMemoryKV()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, kv.Put(key, []byte(key)))
			_, err := kv.Get(key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	keys, err := kv.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 16)
}

func TestRuntimePersistsThroughArchive(t *testing.T) {
	ref := annotation.AnchorRef{PromptIndex: 1, SubPosition: 1, Digest: "0badcafe"}
	anchors := annotation.NewAnchorSet()
	anchors.Add(ref, 1)

	for driver, kv := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			rt := annotation.NewRuntime(annotation.NewStore("annotations:session"), kv, anchors)
			require.NoError(t, rt.Load())
			rt.Start()
			require.NoError(t, rt.SelectBlock(ref.ID()))
			_, err := rt.Save("needs a test")
			require.NoError(t, err)
			assert.Empty(t, rt.Notice)

			reloaded := annotation.NewRuntime(annotation.NewStore("annotations:session"), kv, anchors)
			require.NoError(t, reloaded.Load())
			require.Equal(t, 1, reloaded.Count())
			assert.Equal(t, "needs a test", reloaded.Store().Sorted()[0].Text)
		})
	}
}
