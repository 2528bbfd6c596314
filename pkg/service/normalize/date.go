package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order. Month-first layouts come before day-first
// ones, so an ambiguous 03/04/2025 is read as March 4th.
var dateLayouts = []string{
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2006/1/2 15:04:05",
	"2006/1/2",
	"1-2-2006 15:04:05",
	"1-2-2006",
	"1/2/06 15:04",
	"1/2/06",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
}

// Excel serial numbers accepted as dates: 1954-10-03 through 2119-01-08
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate parses a date cell in any of the formats seen in case exports,
// including Excel serial day numbers. The second value is false when the
// cell is empty or unparseable.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if model.IsNullText(s) {
		return time.Time{}, false
	}
	s = upperMeridiem(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// upperMeridiem turns a trailing "am"/"pm" into upper case so that the "PM"
// layout element matches it
func upperMeridiem(s string) string {
	if len(s) < 3 {
		return s
	}
	tail := strings.ToLower(s[len(s)-2:])
	if (tail == "am" || tail == "pm") && s[len(s)-3] == ' ' {
		return s[:len(s)-2] + strings.ToUpper(tail)
	}
	return s
}
