package pipelinecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() Key {
	return Key{
		VendorID: 0x10de,
		DeviceID: 0x2684,
		UUID:     uuid.MustParse("6f1c5a9e-2b7d-4c39-8e0a-3d4b5c6d7e8f"),
	}
}

func cacheBlob(key Key) []byte {
	return append(EncodeHeader(key), []byte("driver specific payload")...)
}

func TestHeaderRoundTrip(t *testing.T) {
	key := testKey()
	parsed, err := ParseHeader(cacheBlob(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestParseHeaderRejectsGarbage(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)

	bad := cacheBlob(testKey())
	bad[4] = 2
	_, err = ParseHeader(bad)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	data, err := Load(filepath.Join(t.TempDir(), "none.bin"), testKey())
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveThenLoadAcceptsSameDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "pipeline_cache.bin")
	blob := cacheBlob(testKey())
	require.NoError(t, Save(path, blob))

	data, err := Load(path, testKey())
	require.NoError(t, err)
	assert.Equal(t, blob, data)
}

func TestLoadRejectsAnyChangedField(t *testing.T) {
	changes := map[string]func(*Key){
		"vendor": func(k *Key) { k.VendorID = 0x1002 },
		"device": func(k *Key) { k.DeviceID++ },
		"uuid":   func(k *Key) { k.UUID = uuid.MustParse("00000000-0000-4000-8000-000000000001") },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pipeline_cache.bin")
			require.NoError(t, Save(path, cacheBlob(testKey())))

			current := testKey()
			change(&current)
			data, err := Load(path, current)
			assert.ErrorIs(t, err, core.ErrPipelineCacheStale)
			assert.Nil(t, data)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "stale cache should be deleted")
		})
	}
}

func TestSaveRejectsHeaderlessData(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.bin"), []byte("nope")))
}
