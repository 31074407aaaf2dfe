package mzgf

import (
	"bufio"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/nfam/pool/buffer"
)

// Format version written into every file's "MZ" subfield.
const Version = 1

// UBlock is the uncompressed size of every data block but the last. It must
// stay below 1<<16 so that a block offset fits the 16-bit boffset field of
// a VOffset.
const UBlock = 0xFF00

// countWriter wraps an io.Writer and tracks the number of bytes written
// through it, giving the Writer a live compressed-stream cursor without
// needing to query the destination for its position.
type countWriter struct {
	io.Writer
	off int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.off += int64(n)
	return n, err
}

// Writer drives the DEFLATE engine block by block and emits a finalized
// MZGF file: one data member, one or more index members, and an EOF
// member. A Writer is used once, for a single Deflate call; it is not
// safe for concurrent use.
type Writer struct {
	mtime  time.Time
	idx    buffer.Buffer // accumulates packed (zoffset, uoffset) pairs
	errMsg string
}

// NewWriter returns a Writer whose embedded MTIME is the current time.
func NewWriter() *Writer {
	return &Writer{mtime: time.Now(), idx: buffer.Get()}
}

// ErrorMessage returns a description of the last error Deflate returned, or
// the empty string if Deflate has not failed.
func (w *Writer) ErrorMessage() string { return w.errMsg }

// Deflate reads all of src, compresses it into the MZGF container format,
// and writes the result to dst. It keeps exactly one flate.Writer open for
// the whole data member: blocks are separated with Flush (a sync flush,
// which byte-aligns the output) followed by Reset (which drops the
// compressor's history without writing any bytes), together the
// equivalent of zlib's Z_FULL_FLUSH, and the member is terminated with
// Close only once, on the last block. That keeps the member a single,
// standard-gzip-decodable DEFLATE stream instead of one independently
// terminated stream per block.
func (w *Writer) Deflate(src io.Reader, dst io.Writer) error {
	defer w.idx.Close()
	cw := &countWriter{Writer: dst}
	mtimeSecs := uint32(w.mtime.Unix())

	if _, err := writeMemberHeader(cw, mtimeSecs, packMZSubfield(Version)); err != nil {
		return w.fail(err)
	}

	br := bufio.NewReaderSize(src, UBlock)
	flw, err := flate.NewWriter(cw, flate.DefaultCompression)
	if err != nil {
		return w.fail(newErr(DeflateError, "initializing deflate engine", err))
	}

	crcAcc := crc32.NewIEEE()
	var usize int64
	block := make([]byte, UBlock)

	for {
		zoffset := uint64(cw.off)
		n, readErr := io.ReadFull(br, block)
		if readErr == io.ErrUnexpectedEOF {
			readErr = nil // short final read, not an error
		}
		if readErr != nil && readErr != io.EOF {
			return w.fail(newErr(IORead, "reading input block", readErr))
		}

		// Append the index entry before writing the block's compressed
		// bytes, so a reader that only ever sees the index can still
		// resume decompression exactly at zoffset.
		var pair [biEntrySize]byte
		putUint64(pair[0:8], zoffset)
		putUint64(pair[8:16], uint64(usize))
		if _, err := w.idx.Write(pair[:]); err != nil {
			return w.fail(newErr(IOWrite, "building block index", err))
		}

		last := n < UBlock
		if !last {
			// A full UBlock read that lands exactly on EOF is still the
			// last block; peeking one more byte (without consuming it)
			// distinguishes that from a genuine mid-stream full block.
			last = bufioPeekEOF(br)
		}

		if n > 0 {
			crcAcc.Write(block[:n])
			usize += int64(n)
			if _, err := flw.Write(block[:n]); err != nil {
				return w.fail(newErr(DeflateError, "deflating block", err))
			}
		}

		if last {
			if err := flw.Close(); err != nil {
				return w.fail(newErr(DeflateError, "finishing deflate stream", err))
			}
			break
		}
		if err := flw.Flush(); err != nil {
			return w.fail(newErr(DeflateError, "flushing deflate stream", err))
		}
		// Reset discards the compressor's history without writing anything,
		// so no later block can back-reference data before this boundary
		// and a fresh INFLATE can start at the next block's zoffset.
		flw.Reset(cw)
	}

	if _, err := writeTrailer(cw, crcAcc.Sum32(), uint32(usize)); err != nil {
		return w.fail(err)
	}

	firstBindexOffset, err := w.writeIndex(cw, mtimeSecs)
	if err != nil {
		return w.fail(err)
	}

	extra := packBOSubfield(uint64(usize), uint64(firstBindexOffset))
	if _, err := writeEmptyMember(cw, mtimeSecs, extra); err != nil {
		return w.fail(err)
	}

	return nil
}

func (w *Writer) fail(err error) error {
	w.errMsg = err.Error()
	return err
}

// writeIndex emits one or more "BI" index members covering the pooled
// (zoffset, uoffset) pairs accumulated in w.idx, chunked so that no
// member's extra field exceeds maxBIEntriesPerMember entries. Returns the
// compressed-stream offset of the first index member. This mirrors the
// teacher package's seekStat: accumulate the whole table into one pooled
// buffer.Buffer, then slice it into per-member windows on write.
func (w *Writer) writeIndex(cw *countWriter, mtimeSecs uint32) (int64, error) {
	raw := w.idx.Bytes()
	maxChunk := maxBIEntriesPerMember * biEntrySize
	first := cw.off

	for {
		n := len(raw)
		if n > maxChunk {
			n = maxChunk
		}
		chunk := raw[:n]
		raw = raw[n:]
		last := len(raw) == 0

		var next uint64
		if !last {
			extraLen := subfieldHead + biHeaderLen + len(chunk)
			next = uint64(cw.off) + gzHeaderSize + uint64(extraLen) + uint64(len(emptyDeflateBlock)) + trailerSize
		}

		extra := make([]byte, subfieldHead+biHeaderLen+len(chunk))
		extra[0], extra[1] = 'B', 'I'
		putUint16(extra[2:4], uint16(biHeaderLen+len(chunk)))
		putUint64(extra[4:12], next)
		copy(extra[12:], chunk)

		if _, err := writeEmptyMember(cw, mtimeSecs, extra); err != nil {
			return 0, err
		}
		if last {
			break
		}
	}
	return first, nil
}
