package wsjtx

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 081700 -12  0.3  367 ~  EC1AIJ US2YW KN28
const capturedDecode = `
ad bc cb da 00 00 00 02
00 00 00 02 00 00 00 06
57 53 4a 54 2d 58 01 01
c7 04 60 ff ff ff f4 3f
d3 33 33 40 00 00 00 00
00 01 6f 00 00 00 01 7e
00 00 00 11 45 43 31 41
49 4a 20 55 53 32 59 57
20 4b 4e 32 38 00 00`

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	require.NoError(t, err)
	return b
}

func TestDecodeCapturedDatagram(t *testing.T) {
	ev, err := Decode(mustHex(t, capturedDecode))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), ev.SchemaVersion)
	assert.Equal(t, NewText("WSJT-X"), ev.ID)
	assert.True(t, ev.New)
	assert.Equal(t, 29820*time.Second, ev.SinceMidnight)
	assert.Equal(t, int32(-12), ev.SNR)
	assert.InDelta(t, 0.3, ev.DeltaTime, 0.05)
	assert.Equal(t, uint32(367), ev.DeltaFrequency)
	assert.Equal(t, "~", ev.Mode.Value)
	assert.Equal(t, "EC1AIJ US2YW KN28", ev.Message.Value)
	assert.False(t, ev.LowConfidence)
	assert.False(t, ev.OffAir)
}

func TestDecodeIsDeterministic(t *testing.T) {
	data := mustHex(t, capturedDecode)
	first, err := Decode(data)
	require.NoError(t, err)
	second, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeInvalidMagic(t *testing.T) {
	data := mustHex(t, capturedDecode)
	data[0] = 0xac

	ev, err := Decode(data)
	assert.ErrorIs(t, err, ErrInvalidMagicNumber)
	assert.Equal(t, DecodeEvent{}, ev)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidMagicNumber)
	_, err = Decode([]byte{0xad, 0xbc})
	assert.ErrorIs(t, err, ErrInvalidMagicNumber)
}

func TestDecodeRejectsOtherTypes(t *testing.T) {
	status := NewEncoder("WSJT-X").Status(14074000, "FT8")

	_, err := Decode(status)
	assert.ErrorIs(t, err, ErrNotADecodeMessage)

	typ, err := PeekType(status)
	require.NoError(t, err)
	assert.Equal(t, TypeStatus, typ)
}

func TestDecodeTruncatedAtEveryLength(t *testing.T) {
	data := mustHex(t, capturedDecode)
	for n := 0; n < len(data); n++ {
		ev, err := Decode(data[:n])
		require.Error(t, err, "length %d", n)
		assert.Equal(t, DecodeEvent{}, ev, "length %d", n)
		if n < 4 {
			assert.ErrorIs(t, err, ErrInvalidMagicNumber, "length %d", n)
		} else {
			assert.ErrorIs(t, err, ErrTruncated, "length %d", n)
		}
	}
}

func TestDecodeOversizedTextLength(t *testing.T) {
	data := mustHex(t, capturedDecode)
	// message length 0x11 -> 0x7fffffff
	copy(data[48:52], []byte{0x7f, 0xff, 0xff, 0xff})
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeNullString(t *testing.T) {
	enc := NewEncoder("WSJT-X")
	data := enc.Decode(DecodeEvent{
		New:     true,
		Mode:    NullText(),
		Message: NewText(""),
	})

	ev, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, ev.Mode.Null)
	assert.Equal(t, "", ev.Mode.Value)
	assert.False(t, ev.Message.Null)
	assert.Equal(t, "", ev.Message.Value)
	assert.NotEqual(t, ev.Mode, ev.Message)
}

func TestDecodeTextIsSingleByte(t *testing.T) {
	data := NewEncoder("WSJT-X").Decode(DecodeEvent{Mode: NewText("~"), Message: NewText("CQ F5ABC")})
	// Replace the trailing "C" of the message with 0xe9.
	data[len(data)-3] = 0xe9

	ev, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "CQ F5ABé", ev.Message.Value)
}

func TestDecodeStatus(t *testing.T) {
	st, err := DecodeStatus(NewEncoder("JTDX").Status(7074000, "FT8"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, st.SchemaVersion)
	assert.Equal(t, "JTDX", st.ID.Value)
	assert.Equal(t, uint64(7074000), st.DialFrequency)
	assert.Equal(t, "FT8", st.Mode.Value)

	_, err = DecodeStatus(mustHex(t, capturedDecode))
	assert.ErrorIs(t, err, ErrNotAStatusMessage)
}

func latin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

func TestDecodeEncodedEvents(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := DecodeEvent{
			SchemaVersion:  DefaultSchema,
			ID:             NewText("WSJT-X"),
			New:            rapid.Bool().Draw(t, "new"),
			SinceMidnight:  time.Duration(rapid.Uint32Range(0, 86399999).Draw(t, "ms")) * time.Millisecond,
			SNR:            rapid.Int32Range(-30, 40).Draw(t, "snr"),
			DeltaTime:      rapid.Float64Range(-5, 5).Draw(t, "dt"),
			DeltaFrequency: rapid.Uint32Range(0, 5000).Draw(t, "df"),
			Mode:           NewText(latin1(rapid.SliceOfN(rapid.Byte(), 0, 4).Draw(t, "mode"))),
			Message:        NewText(latin1(rapid.SliceOfN(rapid.Byte(), 0, 40).Draw(t, "message"))),
			LowConfidence:  rapid.Bool().Draw(t, "low"),
			OffAir:         rapid.Bool().Draw(t, "offair"),
		}

		got, err := Decode(NewEncoder("WSJT-X").Decode(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestDecodeArbitraryBytes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(t, "data")
		if rapid.Bool().Draw(t, "with header") {
			data = append(NewEncoder("x").header(nil, TypeDecode), data...)
		}

		first, err1 := Decode(data)
		second, err2 := Decode(data)
		assert.Equal(t, first, second)
		assert.Equal(t, err1 == nil, err2 == nil)

		if err1 != nil {
			known := errors.Is(err1, ErrInvalidMagicNumber) ||
				errors.Is(err1, ErrNotADecodeMessage) ||
				errors.Is(err1, ErrTruncated)
			assert.True(t, known, "unexpected error %v", err1)
			assert.Equal(t, DecodeEvent{}, first)
		}
	})
}
