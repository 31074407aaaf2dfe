// Package mzgf implements MZGF, a blocked, randomly-seekable gzip-compatible
// container format.
//
// An MZGF file stores an arbitrary byte stream as one multi-block gzip data
// member, followed by one or more zero-payload index members, followed by a
// fixed-layout EOF member. All three kinds of member are embedded in the
// same gzip stream through the FEXTRA mechanism of RFC 1952, so the whole
// file decompresses end-to-end with any standard gunzip while also carrying
// enough metadata to seek directly to any block boundary without scanning
// from the start.
//
// Use NewWriter and Writer.Deflate to produce a file, and Open to read one
// back. Reader.USeek seeks by position in the original (uncompressed)
// stream; Reader.VSeek seeks by the opaque virtual offset returned from
// Reader.VTell or from a block index entry's ZOffset shifted left 16.
package mzgf
