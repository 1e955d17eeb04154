package common

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Equal(t, uint32(0), Coalesce[uint32]())
	assert.Equal(t, uint32(0), Coalesce[uint32](0, 0))
}

func TestBytes(t *testing.T) {
	assert.Nil(t, Bytes([]uint32(nil)))

	raw := Bytes([]uint32{1, 0x01020304})
	require.Len(t, raw, 8)
	assert.Equal(t, uint32(1), binary.NativeEndian.Uint32(raw[0:]))
	assert.Equal(t, uint32(0x01020304), binary.NativeEndian.Uint32(raw[4:]))

	type vertex struct{ X, Y, Z float32 }
	assert.Len(t, Bytes([]vertex{{}, {}}), 24)
}
