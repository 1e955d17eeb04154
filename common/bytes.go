package common

import "unsafe"

// Bytes reinterprets a slice of plain values as its raw bytes without copying.
// T must not contain pointers, as GPU uploads copy the memory verbatim.
//
// Parameters:
//   - data: the values to view as bytes
//
// Returns:
//   - []byte: a byte view aliasing data, or nil if data is empty
func Bytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(zero)))
}
