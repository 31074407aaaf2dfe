package mzgf

import (
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"
)

// Reader serves content from a finalized MZGF file: streaming reads in
// file order, seeking to a virtual offset, and seeking to an uncompressed
// byte offset via the materialized block index. A Reader is not safe for
// concurrent use, but distinct Readers over distinct file handles on the
// same finalized file are independent.
type Reader struct {
	f *os.File

	version   uint8
	mtimeSecs uint32
	ufilesize uint64
	zfilesize int64
	dataStart int64
	entries   []IndexEntry

	flr       io.ReadCloser
	blockBuf  []byte
	blockIdx  int
	blen      int
	boffset   int
	lastBlock bool
	eofLatch  bool

	errMsg string
}

// Open opens the MZGF file at path, reads and validates its opening
// member, walks its index chain, and positions the reader at the first
// byte of the uncompressed stream.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(IORead, "opening file", err)
	}
	r := &Reader{f: f, blockBuf: make([]byte, UBlock)}
	if err := r.init(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	mh, _, err := readMemberHeader(r.f, maxExtraLen)
	if err != nil {
		return r.fail(err)
	}
	version, err := parseMZSubfield(mh.extra)
	if err != nil {
		return r.fail(err)
	}
	if version != Version {
		return r.fail(newErr(BadVersion, "unsupported MZGF version", nil))
	}
	r.version = version
	r.mtimeSecs = mh.mtime

	dataStart, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return r.fail(newErr(IORead, "locating data member", err))
	}
	r.dataStart = dataStart

	fi, err := r.f.Stat()
	if err != nil {
		return r.fail(newErr(IORead, "stat", err))
	}
	r.zfilesize = fi.Size()

	eofSize := int64(gzHeaderSize + subfieldHead + boPayloadLen + len(emptyDeflateBlock) + trailerSize)
	if _, err := r.f.Seek(r.zfilesize-eofSize, io.SeekStart); err != nil {
		return r.fail(newErr(IORead, "seeking to EOF member", err))
	}
	eofHdr, _, err := readMemberHeader(r.f, subfieldHead+boPayloadLen)
	if err != nil {
		return r.fail(err)
	}
	ufilesize, firstBindexOffset, err := parseBOSubfield(eofHdr.extra)
	if err != nil {
		return r.fail(err)
	}
	r.ufilesize = ufilesize

	next := firstBindexOffset
	for {
		if _, err := r.f.Seek(int64(next), io.SeekStart); err != nil {
			return r.fail(newErr(IORead, "seeking to index member", err))
		}
		biHdr, _, err := readMemberHeader(r.f, maxExtraLen)
		if err != nil {
			return r.fail(err)
		}
		nextOffset, entries, err := parseBISubfield(biHdr.extra)
		if err != nil {
			return r.fail(err)
		}
		r.entries = append(r.entries, entries...)
		if nextOffset == 0 {
			break
		}
		next = nextOffset
	}

	if _, err := r.f.Seek(r.dataStart, io.SeekStart); err != nil {
		return r.fail(newErr(IORead, "seeking to data member", err))
	}
	r.flr = flate.NewReader(r.f)
	r.blockIdx = 0
	return r.fail(r.fillBlock())
}

// Version returns the format version byte carried by the opening member.
func (r *Reader) Version() uint8 { return r.version }

// MTime returns the writer's embedded MTIME, seconds since the epoch. Not
// semantically validated; see DESIGN.md.
func (r *Reader) MTime() uint32 { return r.mtimeSecs }

// UFileSize returns the total uncompressed byte count.
func (r *Reader) UFileSize() uint64 { return r.ufilesize }

// ZFileSize returns the total compressed (on-disk) byte count.
func (r *Reader) ZFileSize() int64 { return r.zfilesize }

// BIndex returns a read-only view of the materialized block index,
// ordered by uoffset (equivalently zoffset) ascending.
func (r *Reader) BIndex() []IndexEntry {
	return r.entries[:len(r.entries):len(r.entries)]
}

// EOF reports whether the EOF latch is set: the last Read observed the
// end of the uncompressed stream. Cleared by any seek.
func (r *Reader) EOF() bool { return r.eofLatch }

// ErrorMessage returns a description of the last error, or the empty
// string if none of the Reader's operations have failed.
func (r *Reader) ErrorMessage() string { return r.errMsg }

// Close tears down the INFLATE engine and closes the underlying file.
func (r *Reader) Close() error {
	if r.flr != nil {
		r.flr.Close()
		r.flr = nil
	}
	return r.f.Close()
}

// Read copies up to len(p) bytes from the current decompressed position,
// advancing it. It returns 0, io.EOF once the uncompressed stream is
// exhausted; a further call continues to return 0, io.EOF without
// advancing.
func (r *Reader) Read(p []byte) (int, error) {
	if r.eofLatch {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) {
		if r.boffset >= r.blen {
			if r.lastBlock {
				r.eofLatch = true
				break
			}
			r.blockIdx++
			if err := r.fillBlock(); err != nil {
				return total, r.fail(err)
			}
		}
		n := copy(p[total:], r.blockBuf[r.boffset:r.blen])
		r.boffset += n
		total += n
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// fillBlock inflates the next block (blockIdx) in full into blockBuf. The
// block count is already known from the materialized index, so the last
// block is identified structurally rather than by probing for a short
// read — robust regardless of how the INFLATE engine buffers internally.
func (r *Reader) fillBlock() error {
	if r.blockIdx >= len(r.entries) {
		return newErr(ReadPastEOF, "no more blocks", nil)
	}
	n, err := io.ReadFull(r.flr, r.blockBuf[:UBlock])
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	if err != nil {
		return newErr(InflateError, "inflating block", err)
	}
	r.blen = n
	r.boffset = 0
	r.lastBlock = r.blockIdx == len(r.entries)-1
	return nil
}

// VOffset is a virtual offset: (zoffset << 16) | boffset, where zoffset is
// the compressed-stream byte offset at which a block's DEFLATE data starts
// (its index entry's ZOffset) and boffset is the 0-based byte offset into
// that block's uncompressed payload.
type VOffset int64

// VTell returns the current virtual offset.
func (r *Reader) VTell() VOffset {
	return VOffset(r.entries[r.blockIdx].ZOffset<<16) | VOffset(r.boffset)
}

// Tell returns the compressed-stream byte offset of the current block.
func (r *Reader) Tell() int64 {
	return int64(r.entries[r.blockIdx].ZOffset)
}

// VSeek seeks to a virtual offset previously obtained from VTell or from a
// block index entry's zoffset shifted left 16. If the target block is
// already the current one, only boffset is adjusted; otherwise the
// underlying file is repositioned and the INFLATE engine is
// re-initialized at the new block boundary.
//
// Re-initializing INFLATE at an indexed zoffset works because the writer
// flushes and resets its compressor at every block boundary, so no block's
// compressed data refers back to bytes before it; see DESIGN.md.
func (r *Reader) VSeek(voffset VOffset) error {
	zoffset := uint64(voffset) >> 16
	boffsetWanted := int(uint64(voffset) & 0xFFFF)

	if r.blockIdx < len(r.entries) && r.entries[r.blockIdx].ZOffset == zoffset {
		if boffsetWanted > r.blen {
			return r.fail(newErr(BadFormat, "boffset exceeds block size", nil))
		}
		r.boffset = boffsetWanted
		r.eofLatch = false
		return nil
	}

	idx := r.findByZOffset(zoffset)
	if idx < 0 {
		return r.fail(newErr(BadFormat, "virtual offset does not land on a block boundary", nil))
	}
	return r.fail(r.seekToBlock(idx, boffsetWanted))
}

// USeek seeks to an uncompressed byte offset by binary-searching the
// index for the block containing it, then seeking into that block.
func (r *Reader) USeek(uoffset uint64) error {
	idx := r.findByUOffset(uoffset)
	boffsetWanted := int(uoffset - r.entries[idx].UOffset)
	return r.fail(r.seekToBlock(idx, boffsetWanted))
}

func (r *Reader) seekToBlock(idx, boffsetWanted int) error {
	entry := r.entries[idx]
	if _, err := r.f.Seek(int64(entry.ZOffset), io.SeekStart); err != nil {
		return newErr(IORead, "seeking to block", err)
	}
	if r.flr != nil {
		r.flr.Close()
	}
	r.flr = flate.NewReader(r.f)
	r.blockIdx = idx
	r.eofLatch = false
	if err := r.fillBlock(); err != nil {
		return err
	}
	if boffsetWanted < 0 || boffsetWanted > r.blen {
		return newErr(BadFormat, "boffset exceeds block size", nil)
	}
	r.boffset = boffsetWanted
	return nil
}

// findByZOffset returns the index of the entry whose ZOffset matches
// exactly, or -1 if none does. Entries are ascending in ZOffset.
func (r *Reader) findByZOffset(zoffset uint64) int {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].ZOffset >= zoffset
	})
	if i < len(r.entries) && r.entries[i].ZOffset == zoffset {
		return i
	}
	return -1
}

// findByUOffset returns the index of the entry with the greatest UOffset
// less than or equal to uoffset (ties resolve to the matching entry).
func (r *Reader) findByUOffset(uoffset uint64) int {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].UOffset > uoffset
	})
	return i - 1
}

func (r *Reader) fail(err error) error {
	if err != nil {
		r.errMsg = err.Error()
	}
	return err
}
