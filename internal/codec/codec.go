// Package codec serializes protocol records to their canonical binary form.
// Every record starts with an 8-byte discriminator and a version byte, all
// integers are little-endian, and every record ends with a fixed reserved
// region so layouts can grow without migration.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"listing-protocol/internal/domain"
)

// Record discriminators, ASCII tags read as big-endian u64.
const (
	ConfigDiscriminator        uint64 = 0x4C495354434F4E46 // "LISTCONF"
	TokenEntryDiscriminator    uint64 = 0x544F4B454E524547 // "TOKENREG"
	TokenProposalDiscriminator uint64 = 0x544F4B454E50524F // "TOKENPRO"
	SpotMarketDiscriminator    uint64 = 0x53504F544D4B5420 // "SPOTMKT "
	SpotProposalDiscriminator  uint64 = 0x53504F5450524F50 // "SPOTPROP"
	PerpMarketDiscriminator    uint64 = 0x504552504D4B5420 // "PERPMKT "
	PerpProposalDiscriminator  uint64 = 0x5045525050524F50 // "PERPPROP"
	PoolDiscriminator          uint64 = 0x504C5034504F4F4C // "PLP4POOL"
)

// CurrentVersion is the record layout version written by this codec.
const CurrentVersion = 1

const reservedLen = 64

var (
	ErrBadDiscriminator = errors.New("codec: record discriminator mismatch")
	ErrBadVersion       = errors.New("codec: unsupported record version")
	ErrShortRecord      = errors.New("codec: record truncated")
	ErrBadSymbol        = errors.New("codec: invalid symbol")
)

// Discriminator returns the discriminator of an encoded record, or an error
// if the record is too short to carry one.
func Discriminator(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, ErrShortRecord
	}
	return binary.BigEndian.Uint64(data[:8]), nil
}

// writer appends little-endian fields to a buffer.
type writer struct {
	buf []byte
}

func newWriter(disc uint64, version uint8) *writer {
	w := &writer{buf: make([]byte, 0, 256)}
	w.buf = binary.BigEndian.AppendUint64(w.buf, disc)
	w.u8(version)
	return w
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) i16(v int16)  { w.u16(uint16(v)) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) address(a domain.Address) {
	w.buf = append(w.buf, a[:]...)
}

// optAddress writes a presence flag followed by the 32 address bytes.
func (w *writer) optAddress(a domain.Address) {
	w.boolean(!a.IsZero())
	w.address(a)
}

// symbol writes s null-padded to width bytes.
func (w *writer) symbol(s string, width int) {
	b := make([]byte, width)
	copy(b, s)
	w.buf = append(w.buf, b...)
}

func (w *writer) reserved() {
	w.buf = append(w.buf, make([]byte, reservedLen)...)
}

func (w *writer) bytes() []byte { return w.buf }

// reader consumes little-endian fields, latching the first error.
type reader struct {
	buf []byte
	err error
}

func newReader(data []byte, disc uint64) *reader {
	r := &reader{buf: data}
	got, err := Discriminator(data)
	if err != nil {
		r.err = err
		return r
	}
	if got != disc {
		r.err = ErrBadDiscriminator
		return r
	}
	r.buf = r.buf[8:]
	if v := r.u8(); r.err == nil && v != CurrentVersion {
		r.err = fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	return r
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = ErrShortRecord
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i16() int16 { return int16(r.u16()) }
func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) address() domain.Address {
	var a domain.Address
	copy(a[:], r.take(32))
	return a
}

func (r *reader) optAddress() domain.Address {
	present := r.boolean()
	a := r.address()
	if !present {
		return domain.ZeroAddress
	}
	return a
}

// symbol reads width bytes and trims at the first NUL.
func (r *reader) symbol(width int) string {
	b := r.take(width)
	if b == nil {
		return ""
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (r *reader) reserved() { r.take(reservedLen) }

// ValidateSymbol checks that s fits a symbol field of the given width:
// 2 to width printable ASCII characters.
func ValidateSymbol(s string, width int) error {
	if len(s) < 2 || len(s) > width {
		return fmt.Errorf("%w: length %d, want 2-%d", ErrBadSymbol, len(s), width)
	}
	for _, c := range []byte(s) {
		if c < 0x21 || c > 0x7e {
			return fmt.Errorf("%w: non-printable character 0x%02x", ErrBadSymbol, c)
		}
	}
	return nil
}
