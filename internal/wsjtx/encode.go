package wsjtx

import (
	"encoding/binary"
	"math"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoder writes datagrams in the same layout WSJT-X uses. The spotter only
// listens, so this exists for the simulator and for tests.
type Encoder struct {
	ClientID string
	Schema   uint32
}

// NewEncoder returns an encoder for the given client id at DefaultSchema.
func NewEncoder(clientID string) *Encoder {
	if clientID == "" {
		clientID = "WSJT-X"
	}
	return &Encoder{ClientID: clientID, Schema: DefaultSchema}
}

// Decode builds a Decode (type 2) datagram. The event's own schema and id are
// ignored in favour of the encoder's.
func (e *Encoder) Decode(ev DecodeEvent) []byte {
	buf := e.header(nil, TypeDecode)
	buf = appendBool(buf, ev.New)
	buf = binary.BigEndian.AppendUint32(buf, uint32(ev.SinceMidnight/time.Millisecond))
	buf = binary.BigEndian.AppendUint32(buf, uint32(ev.SNR))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(ev.DeltaTime))
	buf = binary.BigEndian.AppendUint32(buf, ev.DeltaFrequency)
	buf = appendText(buf, ev.Mode)
	buf = appendText(buf, ev.Message)
	buf = appendBool(buf, ev.LowConfidence)
	buf = appendBool(buf, ev.OffAir)
	return buf
}

// Status builds a Status (type 1) datagram carrying the dial frequency and
// mode. The trailing fields are written empty, as a receiver that is not
// transmitting would report them.
func (e *Encoder) Status(dialFreq uint64, mode string) []byte {
	buf := e.header(nil, TypeStatus)
	buf = binary.BigEndian.AppendUint64(buf, dialFreq)
	buf = appendText(buf, NewText(mode)) // Mode
	buf = appendText(buf, NewText(""))   // DX call
	buf = appendText(buf, NewText(""))   // Report
	buf = appendText(buf, NewText(mode)) // Tx mode
	buf = appendBool(buf, false)         // Tx enabled
	buf = appendBool(buf, false)         // Transmitting
	buf = appendBool(buf, true)          // Decoding
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	return buf
}

// SinceMidnight converts a wall-clock time to the QTime offset WSJT-X sends.
func SinceMidnight(t time.Time) time.Duration {
	utc := t.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return utc.Sub(midnight).Truncate(time.Millisecond)
}

func (e *Encoder) header(buf []byte, typ MessageType) []byte {
	buf = binary.BigEndian.AppendUint32(buf, Magic)
	buf = binary.BigEndian.AppendUint32(buf, e.Schema)
	buf = binary.BigEndian.AppendUint32(buf, uint32(typ))
	return appendText(buf, NewText(e.ClientID))
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendText(buf []byte, t Text) []byte {
	if t.Null {
		return binary.BigEndian.AppendUint32(buf, nullLength)
	}
	raw, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).String(t.Value)
	if err != nil {
		raw = ""
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(raw)))
	return append(buf, raw...)
}
