package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUFieldShadeParams is the GPU-aligned uniform for the field fragment
// shader. Matches the WGSL ShadeParams struct layout exactly.
// Size: 16 bytes (std140 aligned).
type GPUFieldShadeParams struct {
	MinValue float32 // offset 0: lower bound of the display range
	InvRange float32 // offset 4: 1 / (max - min); 1 when the range is collapsed
	Opacity  float32 // offset 8: surface opacity
	Flags    uint32  // offset 12: reserved, keeps the block 16 bytes
}

// Size returns the size of the GPUFieldShadeParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFieldShadeParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFieldShadeParams struct into a byte buffer
// suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUFieldShadeParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.MinValue))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.InvRange))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Opacity))
	binary.LittleEndian.PutUint32(buf[12:16], g.Flags)
	return buf
}
