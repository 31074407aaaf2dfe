package mzgf

// IndexEntry is one block index entry: the compressed-stream byte offset of
// a data block's start (zoffset) and the uncompressed-stream byte offset of
// its first byte (uoffset). Entries are ordered by uoffset ascending,
// equivalently by zoffset ascending.
type IndexEntry struct {
	ZOffset uint64
	UOffset uint64
}

// packMZSubfield builds the "MZ" extra subfield carried by the opening
// member: SI1='M', SI2='Z', LEN=1, payload=version.
func packMZSubfield(version uint8) []byte {
	buf := make([]byte, subfieldHead+mzPayloadLen)
	buf[0], buf[1] = 'M', 'Z'
	putUint16(buf[2:4], mzPayloadLen)
	buf[4] = version
	return buf
}

// parseMZSubfield validates that extra is exactly the "MZ" subfield and
// returns the format version byte it carries.
func parseMZSubfield(extra []byte) (uint8, error) {
	if len(extra) != subfieldHead+mzPayloadLen {
		return 0, newErr(NotMZGzip, "missing MZ subfield", nil)
	}
	// Both identifier bytes must match; see DESIGN.md for the rationale.
	if extra[0] != 'M' || extra[1] != 'Z' {
		return 0, newErr(NotMZGzip, "missing MZ subfield", nil)
	}
	if getUint16(extra[2:4]) != mzPayloadLen {
		return 0, newErr(BadFormat, "malformed MZ subfield length", nil)
	}
	return extra[4], nil
}

// packBOSubfield builds the "BO" extra subfield carried by the EOF member.
func packBOSubfield(ufilesize, firstBindexOffset uint64) []byte {
	buf := make([]byte, subfieldHead+boPayloadLen)
	buf[0], buf[1] = 'B', 'O'
	putUint16(buf[2:4], boPayloadLen)
	putUint64(buf[4:12], ufilesize)
	putUint64(buf[12:20], firstBindexOffset)
	return buf
}

// parseBOSubfield validates and decodes the "BO" subfield.
func parseBOSubfield(extra []byte) (ufilesize, firstBindexOffset uint64, err error) {
	if len(extra) != subfieldHead+boPayloadLen {
		return 0, 0, newErr(BadFormat, "missing BO subfield", nil)
	}
	if extra[0] != 'B' || extra[1] != 'O' {
		return 0, 0, newErr(BadFormat, "missing BO subfield", nil)
	}
	if getUint16(extra[2:4]) != boPayloadLen {
		return 0, 0, newErr(BadFormat, "malformed BO subfield length", nil)
	}
	return getUint64(extra[4:12]), getUint64(extra[12:20]), nil
}

// packBISubfield builds one "BI" extra subfield carrying nextOffset and the
// given slice of index entries (already bounded to maxBIEntriesPerMember
// by the caller).
func packBISubfield(nextOffset uint64, entries []IndexEntry) []byte {
	payloadLen := biHeaderLen + len(entries)*biEntrySize
	buf := make([]byte, subfieldHead+payloadLen)
	buf[0], buf[1] = 'B', 'I'
	putUint16(buf[2:4], uint16(payloadLen))
	putUint64(buf[4:12], nextOffset)
	off := subfieldHead + biHeaderLen
	for _, e := range entries {
		putUint64(buf[off:off+8], e.ZOffset)
		putUint64(buf[off+8:off+16], e.UOffset)
		off += biEntrySize
	}
	return buf
}

// parseBISubfield validates and decodes one "BI" subfield.
func parseBISubfield(extra []byte) (nextOffset uint64, entries []IndexEntry, err error) {
	if len(extra) < subfieldHead+biHeaderLen {
		return 0, nil, newErr(BadFormat, "missing BI subfield", nil)
	}
	if extra[0] != 'B' || extra[1] != 'I' {
		return 0, nil, newErr(BadFormat, "missing BI subfield", nil)
	}
	payloadLen := int(getUint16(extra[2:4]))
	if subfieldHead+payloadLen != len(extra) {
		return 0, nil, newErr(BadFormat, "malformed BI subfield length", nil)
	}
	if (payloadLen-biHeaderLen)%biEntrySize != 0 {
		return 0, nil, newErr(BadFormat, "malformed BI entry count", nil)
	}
	nextOffset = getUint64(extra[4:12])
	count := (payloadLen - biHeaderLen) / biEntrySize
	entries = make([]IndexEntry, count)
	off := subfieldHead + biHeaderLen
	for i := 0; i < count; i++ {
		entries[i] = IndexEntry{
			ZOffset: getUint64(extra[off : off+8]),
			UOffset: getUint64(extra[off+8 : off+16]),
		}
		off += biEntrySize
	}
	return nextOffset, entries, nil
}
