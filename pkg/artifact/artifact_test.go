package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWasmImage_SingleLayer asserts a raw component blob wraps into a
// single-layer image tagged with the wasm application media type, so an
// ordinary OCI registry client can push it.
func TestWasmImage_SingleLayer(t *testing.T) {
	blob := []byte("fake wasm component bytes")

	img, err := wasmImage(blob)
	require.NoError(t, err)

	layers, err := img.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 1)

	mediaType, err := layers[0].MediaType()
	require.NoError(t, err)
	assert.Equal(t, wasmApplicationLayerType, mediaType)

	size, err := layers[0].Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(blob)), size)
}

// TestWasmImage_EmptyBlob still produces a valid single-layer image; the
// publisher never inspects blob contents, only forwards whatever bytes the
// object store returned.
func TestWasmImage_EmptyBlob(t *testing.T) {
	img, err := wasmImage(nil)
	require.NoError(t, err)

	layers, err := img.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 1)
}
