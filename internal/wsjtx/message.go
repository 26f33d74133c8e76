// Package wsjtx reads and writes the UDP datagrams WSJT-X emits on port 2237.
//
// All messages share a QDataStream header: the 32-bit magic number 0xadbccbda,
// a 32-bit schema number, the 32-bit message type and a utf8 client id. Every
// integer and double is big endian. Text fields are a quint32 byte count
// followed by that many bytes; a count of 0xffffffff is a null string, which
// is distinct from an empty one.
package wsjtx

import (
	"errors"
	"fmt"
	"time"
)

// Magic is the first four bytes of every WSJT-X datagram.
const Magic uint32 = 0xadbccbda

// DefaultSchema is the schema number written by Encoder (Qt 5.4+ format).
const DefaultSchema uint32 = 3

// nullLength is the byte count QDataStream uses for a null QByteArray.
const nullLength uint32 = 0xffffffff

// MessageType identifies the payload following the header.
type MessageType uint32

const (
	TypeHeartbeat  MessageType = 0
	TypeStatus     MessageType = 1
	TypeDecode     MessageType = 2
	TypeClear      MessageType = 3
	TypeReply      MessageType = 4
	TypeQSOLogged  MessageType = 5
	TypeClose      MessageType = 6
	TypeReplay     MessageType = 7
	TypeHaltTx     MessageType = 8
	TypeFreeText   MessageType = 9
	TypeWSPRDecode MessageType = 10
)

func (t MessageType) String() string {
	switch t {
	case TypeHeartbeat:
		return "heartbeat"
	case TypeStatus:
		return "status"
	case TypeDecode:
		return "decode"
	case TypeClear:
		return "clear"
	case TypeReply:
		return "reply"
	case TypeQSOLogged:
		return "qso_logged"
	case TypeClose:
		return "close"
	case TypeReplay:
		return "replay"
	case TypeHaltTx:
		return "halt_tx"
	case TypeFreeText:
		return "free_text"
	case TypeWSPRDecode:
		return "wspr_decode"
	default:
		return fmt.Sprintf("type_%d", uint32(t))
	}
}

var (
	// ErrInvalidMagicNumber is returned when a datagram does not start with Magic.
	ErrInvalidMagicNumber = errors.New("wsjtx: invalid magic number")
	// ErrNotADecodeMessage is returned by Decode for any other message type.
	// Listeners see every message type on the same port, so callers skip these.
	ErrNotADecodeMessage = errors.New("wsjtx: not a decode message")
	// ErrNotAStatusMessage is returned by DecodeStatus for any other message type.
	ErrNotAStatusMessage = errors.New("wsjtx: not a status message")
	// ErrTruncated is returned when a field runs past the end of the datagram.
	ErrTruncated = errors.New("wsjtx: truncated datagram")
)

// Text is a QByteArray field. Null is set when the wire carried the
// 0xffffffff sentinel; Value is then empty.
type Text struct {
	Value string
	Null  bool
}

// NewText returns a non-null Text.
func NewText(s string) Text {
	return Text{Value: s}
}

// NullText returns the null string.
func NullText() Text {
	return Text{Null: true}
}

func (t Text) String() string {
	return t.Value
}

// DecodeEvent is one Decode (type 2) message: a single line of the band
// activity window.
type DecodeEvent struct {
	SchemaVersion  uint32
	ID             Text
	New            bool
	SinceMidnight  time.Duration
	SNR            int32
	DeltaTime      float64
	DeltaFrequency uint32
	Mode           Text
	Message        Text
	LowConfidence  bool
	OffAir         bool
}

// Status carries the leading fields of a Status (type 1) message, enough to
// know which band and mode the decodes that follow belong to.
type Status struct {
	SchemaVersion uint32
	ID            Text
	DialFrequency uint64
	Mode          Text
}
