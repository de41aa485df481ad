package pipelinecache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/penumbra/engine/core"
)

const (
	// HeaderSize is the size of the version one header every driver writes first.
	HeaderSize = 32
	// HeaderVersionOne is VK_PIPELINE_CACHE_HEADER_VERSION_ONE.
	HeaderVersionOne = 1
)

// Key identifies the device a pipeline cache was produced on.
type Key struct {
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func (k Key) String() string {
	return fmt.Sprintf("vendor=0x%04x device=0x%04x uuid=%s", k.VendorID, k.DeviceID, k.UUID)
}

// EncodeHeader returns the header a driver with this key writes in front of its cache data.
func EncodeHeader(key Key) []byte {
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], HeaderSize)
	binary.LittleEndian.PutUint32(header[4:8], HeaderVersionOne)
	binary.LittleEndian.PutUint32(header[8:12], key.VendorID)
	binary.LittleEndian.PutUint32(header[12:16], key.DeviceID)
	copy(header[16:32], key.UUID[:])
	return header
}

// ParseHeader reads the key out of a serialized pipeline cache.
func ParseHeader(data []byte) (Key, error) {
	if len(data) < HeaderSize {
		return Key{}, fmt.Errorf("pipeline cache too short: %d bytes", len(data))
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])
	if size != HeaderSize || version != HeaderVersionOne {
		return Key{}, fmt.Errorf("unsupported pipeline cache header (size=%d, version=%d)", size, version)
	}
	id, err := uuid.FromBytes(data[16:32])
	if err != nil {
		return Key{}, err
	}
	return Key{
		VendorID: binary.LittleEndian.Uint32(data[8:12]),
		DeviceID: binary.LittleEndian.Uint32(data[12:16]),
		UUID:     id,
	}, nil
}

// Load returns the cache stored at path when it was written by the device
// identified by key. A missing file yields no data and no error. A cache from
// another device, driver or an unreadable header is deleted and reported as
// core.ErrPipelineCacheStale; the caller starts from an empty cache.
func Load(path string, key Key) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pipeline cache %s: %w", path, err)
	}

	stored, err := ParseHeader(data)
	if err == nil && stored == key {
		core.LogDebug("pipeline cache %s accepted (%d bytes, %s)", path, len(data), key)
		return data, nil
	}

	if err != nil {
		core.LogWarn("discarding pipeline cache %s: %s", path, err.Error())
	} else {
		core.LogWarn("discarding pipeline cache %s: built for %s, device is %s", path, stored, key)
	}
	if rmErr := os.Remove(path); rmErr != nil {
		core.LogError("failed to remove stale pipeline cache %s: %s", path, rmErr.Error())
	}
	return nil, core.ErrPipelineCacheStale
}

// Save writes the serialized cache to path, creating parent directories.
func Save(path string, data []byte) error {
	if _, err := ParseHeader(data); err != nil {
		return fmt.Errorf("refusing to save pipeline cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline cache %s: %w", path, err)
	}
	return nil
}
