package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerPixels(t *testing.T) {
	pixels := checkerPixels(16, 4)
	require.Len(t, pixels, 16*16*4)

	at := func(x, y int) byte { return pixels[(y*16+x)*4] }
	assert.Equal(t, byte(200), at(0, 0))
	assert.Equal(t, byte(60), at(4, 0))
	assert.Equal(t, byte(60), at(0, 4))
	assert.Equal(t, byte(200), at(4, 4))
	for i := 3; i < len(pixels); i += 4 {
		assert.Equal(t, byte(255), pixels[i])
	}
}

func TestSkyPixelsHoldSixFaces(t *testing.T) {
	const size = 8
	pixels := skyPixels(size)
	require.Len(t, pixels, 6*size*size*4)

	face := func(f int) []byte { return pixels[f*size*size*4 : (f+1)*size*size*4] }
	top, bottom := face(2), face(3)
	// The zenith face is uniformly blue, the ground face uniformly dark.
	assert.Greater(t, top[2], top[0])
	assert.Equal(t, top[:4], top[len(top)-4:])
	assert.Equal(t, bottom[:4], bottom[len(bottom)-4:])
	// Side faces fade, so the first and last rows differ.
	side := face(0)
	assert.NotEqual(t, side[:4], side[len(side)-4:])
}
