package metadata

import (
	"bytes"
	"encoding/binary"
)

// Bytes packs a fixed size value the way the shaders read it: little endian,
// no implicit padding. Uniform structs must be laid out with std140 in mind.
func Bytes(data interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
