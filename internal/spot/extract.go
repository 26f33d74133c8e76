// Package spot pulls the heard station out of the free text of a decode.
package spot

import "strings"

// signOff is the common "roger, 73" report. It has the shape of a grid
// square but never is one.
const signOff = "RR73"

// Heard is what a single decode tells us about the transmitting station.
type Heard struct {
	Callsign string
	Grid     string
}

// Extract applies ExtractCallsign and ExtractGrid to the same message.
func Extract(message string) Heard {
	var h Heard
	h.Callsign, _ = ExtractCallsign(message)
	h.Grid, _ = ExtractGrid(message)
	return h
}

// ExtractCallsign returns the transmitting callsign of a standard message.
//
//	CQ EA1ABC IN52     -> EA1ABC
//	EC1AIJ US2YW KN28  -> US2YW
//	EC1AIJ US2YW -12   -> US2YW
//	CQ DX EA1ABC IN52  -> EA1ABC
//	US2YW EC1AIJ       -> EC1AIJ
//
// Messages of more than four words are free text and yield nothing.
// Angle brackets marking a hashed callsign are removed.
func ExtractCallsign(message string) (string, bool) {
	words := strings.Fields(message)

	var call string
	switch len(words) {
	case 1:
		call = words[0]
	case 2:
		call = words[1]
	case 3, 4:
		call = words[len(words)-2]
	default:
		return "", false
	}

	call = strings.NewReplacer("<", "", ">", "").Replace(call)
	if call == "" {
		return "", false
	}
	return call, true
}

// ExtractGrid returns the four character locator at the end of a message,
// if the final word is one.
func ExtractGrid(message string) (string, bool) {
	words := strings.Fields(message)
	if len(words) < 2 || len(words) > 4 {
		return "", false
	}

	last := words[len(words)-1]
	if !IsMaidenheadGrid(last) {
		return "", false
	}
	return last, true
}

// StrayGrid reports a grid-shaped word that ExtractGrid did not pick up,
// e.g. a locator sent mid-message. It is only useful for diagnostics.
func StrayGrid(message string) (string, bool) {
	if _, ok := ExtractGrid(message); ok {
		return "", false
	}
	for _, w := range strings.Fields(message) {
		if IsMaidenheadGrid(w) {
			return w, true
		}
	}
	return "", false
}

// IsMaidenheadGrid matches a four character square: two upper case letters
// then two digits. RR73 is rejected.
func IsMaidenheadGrid(s string) bool {
	if len(s) != 4 || s == signOff {
		return false
	}
	return isUpper(s[0]) && isUpper(s[1]) && isDigit(s[2]) && isDigit(s[3])
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
