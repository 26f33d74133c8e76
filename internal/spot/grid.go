package spot

import (
	"fmt"
	"strings"
)

// GridCenter returns the centre of a 4, 6 or 8 character Maidenhead locator.
func GridCenter(locator string) (lat, lon float64, err error) {
	locator = strings.ToUpper(locator)

	if len(locator) != 4 && len(locator) != 6 && len(locator) != 8 {
		return 0, 0, fmt.Errorf("invalid locator length %d", len(locator))
	}
	if locator[0] < 'A' || locator[0] > 'R' || locator[1] < 'A' || locator[1] > 'R' {
		return 0, 0, fmt.Errorf("invalid field in %q", locator)
	}
	if !isDigit(locator[2]) || !isDigit(locator[3]) {
		return 0, 0, fmt.Errorf("invalid square in %q", locator)
	}
	if len(locator) >= 6 && (locator[4] < 'A' || locator[4] > 'X' || locator[5] < 'A' || locator[5] > 'X') {
		return 0, 0, fmt.Errorf("invalid subsquare in %q", locator)
	}
	if len(locator) == 8 && (!isDigit(locator[6]) || !isDigit(locator[7])) {
		return 0, 0, fmt.Errorf("invalid extended square in %q", locator)
	}

	// Field: 20 x 10 degrees. Square: 2 x 1 degrees.
	lon = float64(locator[0]-'A')*20 + float64(locator[2]-'0')*2
	lat = float64(locator[1]-'A')*10 + float64(locator[3]-'0')

	switch len(locator) {
	case 4:
		lon++
		lat += 0.5
	case 6:
		lon += float64(locator[4]-'A')*(2.0/24) + 2.0/48
		lat += float64(locator[5]-'A')*(1.0/24) + 1.0/48
	case 8:
		lon += float64(locator[4]-'A')*(2.0/24) + float64(locator[6]-'0')*(2.0/240) + 2.0/480
		lat += float64(locator[5]-'A')*(1.0/24) + float64(locator[7]-'0')*(1.0/240) + 1.0/480
	}

	return lat - 90, lon - 180, nil
}
