package mzgf

import "encoding/binary"

// putUint16 encodes v into buf[0:2] in little-endian order. The caller
// must ensure buf has at least 2 bytes of capacity.
func putUint16(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

// putUint32 encodes v into buf[0:4] in little-endian order.
func putUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// putUint64 encodes v into buf[0:8] in little-endian order.
func putUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// getUint16 decodes a little-endian uint16 from buf[0:2].
func getUint16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

// getUint32 decodes a little-endian uint32 from buf[0:4].
func getUint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// getUint64 decodes a little-endian uint64 from buf[0:8].
func getUint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}
