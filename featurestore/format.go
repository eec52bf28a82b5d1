package featurestore

import (
	"encoding/binary"
	"math"
)

const (
	MagicNumber = 0x58494c42 // "BLIX"
	Version     = 1

	// HeaderSize is the size of the index header in bytes.
	HeaderSize = 4 + 4 + 8 + 4 + 4 + 4 + 4

	// RecordSize is the size of one encoded feature record in bytes.
	RecordSize = 12

	IndexSuffix = ".index"
	DataSuffix  = ".data"
)

// Record is one sparse feature of an example.
// Its memory layout matches the on-disk encoding.
type Record struct {
	Field uint32
	Index uint32
	Value float32
}

// IndexHeader is the fixed-size prefix of an index blob.
type IndexHeader struct {
	Magic        uint32
	Version      uint32
	NumExamples  uint64
	NumFields    uint32
	NumIndices   uint32
	NumIndexBits uint32
	Checksum     uint32 // CRC32C of everything after the header
}

// Encode serializes the header.
func (h *IndexHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	binary.LittleEndian.PutUint64(buf[8:], h.NumExamples)
	binary.LittleEndian.PutUint32(buf[16:], h.NumFields)
	binary.LittleEndian.PutUint32(buf[20:], h.NumIndices)
	binary.LittleEndian.PutUint32(buf[24:], h.NumIndexBits)
	binary.LittleEndian.PutUint32(buf[28:], h.Checksum)
	return buf
}

// DecodeHeader parses and validates the header prefix of buf.
func DecodeHeader(buf []byte) (*IndexHeader, error) {
	if len(buf) < HeaderSize {
		return nil, corrupt("header truncated: %d bytes", len(buf))
	}
	h := &IndexHeader{
		Magic:        binary.LittleEndian.Uint32(buf[0:]),
		Version:      binary.LittleEndian.Uint32(buf[4:]),
		NumExamples:  binary.LittleEndian.Uint64(buf[8:]),
		NumFields:    binary.LittleEndian.Uint32(buf[16:]),
		NumIndices:   binary.LittleEndian.Uint32(buf[20:]),
		NumIndexBits: binary.LittleEndian.Uint32(buf[24:]),
		Checksum:     binary.LittleEndian.Uint32(buf[28:]),
	}
	if h.Magic != MagicNumber {
		return nil, corrupt("invalid magic 0x%08x", h.Magic)
	}
	if h.Version != Version {
		return nil, corrupt("unsupported version %d", h.Version)
	}
	if h.NumIndexBits == 0 {
		return nil, corrupt("n_index_bits missing")
	}
	return h, nil
}

// PutRecord encodes r into buf, which must hold RecordSize bytes.
func PutRecord(buf []byte, r Record) {
	binary.LittleEndian.PutUint32(buf[0:], r.Field)
	binary.LittleEndian.PutUint32(buf[4:], r.Index)
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(r.Value))
}

// DecodeRecords decodes buf into dst, reusing its capacity.
func DecodeRecords(dst []Record, buf []byte) []Record {
	n := len(buf) / RecordSize
	if cap(dst) < n {
		dst = make([]Record, n)
	}
	dst = dst[:n]
	for i := range dst {
		b := buf[i*RecordSize:]
		dst[i] = Record{
			Field: binary.LittleEndian.Uint32(b[0:]),
			Index: binary.LittleEndian.Uint32(b[4:]),
			Value: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		}
	}
	return dst
}
