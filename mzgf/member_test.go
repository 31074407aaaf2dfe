package mzgf

import (
	"bufio"
	"bytes"
	"testing"
)

func TestMemberHeaderRoundTrip(t *testing.T) {
	var b bytes.Buffer
	extra := packMZSubfield(Version)
	n, err := writeMemberHeader(&b, 1700000000, extra)
	if err != nil {
		t.Fatal(err)
	}
	if n != gzHeaderSize+len(extra) {
		t.Errorf("wrote %d bytes, want %d", n, gzHeaderSize+len(extra))
	}

	mh, n2, err := readMemberHeader(&b, maxExtraLen)
	if err != nil {
		t.Fatal(err)
	}
	if n2 != n {
		t.Errorf("read %d bytes, want %d", n2, n)
	}
	if mh.mtime != 1700000000 {
		t.Errorf("mtime = %d, want 1700000000", mh.mtime)
	}
	if !bytes.Equal(mh.extra, extra) {
		t.Errorf("extra = %x, want %x", mh.extra, extra)
	}
}

func TestReadMemberHeaderRejectsBadMagic(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{0x00, 0x00, 8, gzipFExtra, 0, 0, 0, 0, 0, 0, 0, 0})
	if _, _, err := readMemberHeader(&b, maxExtraLen); err == nil {
		t.Fatal("expected error on bad magic")
	} else if e, ok := err.(*Error); !ok || e.Kind != NotGzip {
		t.Errorf("got %v, want NotGzip", err)
	}
}

func TestReadMemberHeaderRejectsMissingFExtra(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{gzipID1, gzipID2, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	if _, _, err := readMemberHeader(&b, maxExtraLen); err == nil {
		t.Fatal("expected error on missing FEXTRA")
	} else if e, ok := err.(*Error); !ok || e.Kind != BadFormat {
		t.Errorf("got %v, want BadFormat", err)
	}
}

func TestReadMemberHeaderRejectsOversizedExtra(t *testing.T) {
	var b bytes.Buffer
	writeMemberHeader(&b, 0, packMZSubfield(Version))
	if _, _, err := readMemberHeader(&b, 0); err == nil {
		t.Fatal("expected error on oversized extra")
	} else if e, ok := err.(*Error); !ok || e.Kind != BadFormat {
		t.Errorf("got %v, want BadFormat", err)
	}
}

func TestWriteEmptyMemberRoundTrip(t *testing.T) {
	var b bytes.Buffer
	extra := packBOSubfield(0, 0)
	if _, err := writeEmptyMember(&b, 42, extra); err != nil {
		t.Fatal(err)
	}

	mh, _, err := readMemberHeader(&b, maxExtraLen)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mh.extra, extra) {
		t.Errorf("extra = %x, want %x", mh.extra, extra)
	}
	if err := skipEmptyPayload(&b); err != nil {
		t.Fatal(err)
	}
	crc, isize, _, err := readTrailer(&b)
	if err != nil {
		t.Fatal(err)
	}
	if crc != 0 || isize != 0 {
		t.Errorf("trailer = (%d, %d), want (0, 0)", crc, isize)
	}
	if b.Len() != 0 {
		t.Errorf("%d trailing bytes", b.Len())
	}
}

func TestBufioPeekEOF(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader(nil))
	if !bufioPeekEOF(br) {
		t.Error("expected EOF on empty reader")
	}
	br = bufio.NewReader(bytes.NewReader([]byte{1}))
	if bufioPeekEOF(br) {
		t.Error("did not expect EOF on non-empty reader")
	}
}
