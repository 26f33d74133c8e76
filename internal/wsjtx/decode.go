package wsjtx

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// reader walks a datagram front to back. Every accessor fails with
// ErrTruncated rather than returning a zero value past the end.
type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int, field string) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d", ErrTruncated, field, n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32(field string) (uint32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) int32(field string) (int32, error) {
	v, err := r.uint32(field)
	return int32(v), err
}

func (r *reader) uint64(field string) (uint64, error) {
	b, err := r.take(8, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) float64(field string) (float64, error) {
	v, err := r.uint64(field)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *reader) bool(field string) (bool, error) {
	b, err := r.take(1, field)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// text reads a QByteArray. Each byte becomes one Latin-1 character; the
// bytes are not treated as UTF-8.
func (r *reader) text(field string) (Text, error) {
	n, err := r.uint32(field)
	if err != nil {
		return Text{}, err
	}
	if n == nullLength {
		return NullText(), nil
	}
	if uint64(n) > uint64(len(r.buf)-r.off) {
		return Text{}, fmt.Errorf("%w: %s declares %d bytes at offset %d, have %d", ErrTruncated, field, n, r.off, len(r.buf)-r.off)
	}
	raw, err := r.take(int(n), field)
	if err != nil {
		return Text{}, err
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return Text{}, fmt.Errorf("wsjtx: %s: %w", field, err)
	}
	return NewText(string(decoded)), nil
}

// header checks the magic number and reads the schema and message type.
func header(b []byte) (*reader, uint32, MessageType, error) {
	if len(b) < 4 || binary.BigEndian.Uint32(b) != Magic {
		return nil, 0, 0, ErrInvalidMagicNumber
	}
	r := &reader{buf: b, off: 4}
	schema, err := r.uint32("schema")
	if err != nil {
		return nil, 0, 0, err
	}
	typ, err := r.uint32("message type")
	if err != nil {
		return nil, 0, 0, err
	}
	return r, schema, MessageType(typ), nil
}

// PeekType returns the message type of a datagram without reading its payload.
func PeekType(b []byte) (MessageType, error) {
	_, _, typ, err := header(b)
	return typ, err
}

// Decode parses a Decode (type 2) datagram.
func Decode(b []byte) (DecodeEvent, error) {
	r, schema, typ, err := header(b)
	if err != nil {
		return DecodeEvent{}, err
	}
	if typ != TypeDecode {
		return DecodeEvent{}, fmt.Errorf("%w: got %s", ErrNotADecodeMessage, typ)
	}

	ev := DecodeEvent{SchemaVersion: schema}
	if ev.ID, err = r.text("id"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.New, err = r.bool("new"); err != nil {
		return DecodeEvent{}, err
	}
	ms, err := r.uint32("time")
	if err != nil {
		return DecodeEvent{}, err
	}
	ev.SinceMidnight = time.Duration(ms) * time.Millisecond
	if ev.SNR, err = r.int32("snr"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.DeltaTime, err = r.float64("delta time"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.DeltaFrequency, err = r.uint32("delta frequency"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.Mode, err = r.text("mode"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.Message, err = r.text("message"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.LowConfidence, err = r.bool("low confidence"); err != nil {
		return DecodeEvent{}, err
	}
	if ev.OffAir, err = r.bool("off air"); err != nil {
		return DecodeEvent{}, err
	}
	return ev, nil
}

// DecodeStatus parses the leading fields of a Status (type 1) datagram. The
// remaining fields vary between schema revisions and are ignored.
func DecodeStatus(b []byte) (Status, error) {
	r, schema, typ, err := header(b)
	if err != nil {
		return Status{}, err
	}
	if typ != TypeStatus {
		return Status{}, fmt.Errorf("%w: got %s", ErrNotAStatusMessage, typ)
	}

	st := Status{SchemaVersion: schema}
	if st.ID, err = r.text("id"); err != nil {
		return Status{}, err
	}
	if st.DialFrequency, err = r.uint64("dial frequency"); err != nil {
		return Status{}, err
	}
	if st.Mode, err = r.text("mode"); err != nil {
		return Status{}, err
	}
	return st, nil
}
