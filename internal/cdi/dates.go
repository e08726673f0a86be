package cdi

import (
	"strconv"
	"strings"
	"time"
)

// dekadLength is the fixed window of a dekadal file, start day included.
const dekadLength = 10

// DateToken extracts the date part of a raster filename: the extension is
// dropped and every dash-separated component from the fifth onward is kept.
//
//	eadw-cdi-data-2024-01-21.tif -> 01-21
//	eadw-cdi-data-2024-Feb.tif   -> Feb
func DateToken(filename string) string {
	stem := strings.SplitN(filename, ".", 2)[0]
	parts := strings.Split(stem, "-")
	if len(parts) < 5 {
		return ""
	}
	return strings.Join(parts[4:], "-")
}

// ParseDates returns the period covered by filename in year.
// Dekadal files cover ten days from MM-DD, crossing month ends when needed.
// Monthly files cover the whole named month.
func ParseDates(filename string, kind PeriodKind, year int) (time.Time, time.Time, error) {
	token := DateToken(filename)
	if token == "" {
		return time.Time{}, time.Time{}, &MalformedFilenameError{Filename: filename, Kind: kind, Reason: "no date token"}
	}

	switch kind {
	case Dekadal:
		return parseDekad(filename, token, year)
	case Monthly:
		return parseMonth(filename, token, year)
	default:
		return time.Time{}, time.Time{}, &MalformedFilenameError{Filename: filename, Kind: kind, Reason: "unknown period kind"}
	}
}

func parseDekad(filename, token string, year int) (time.Time, time.Time, error) {
	malformed := func(reason string) (time.Time, time.Time, error) {
		return time.Time{}, time.Time{}, &MalformedFilenameError{Filename: filename, Kind: Dekadal, Reason: reason}
	}

	fields := strings.Split(token, "-")
	if len(fields) != 2 {
		return malformed("date token " + strconv.Quote(token) + " is not MM-DD")
	}
	month, err := strconv.Atoi(fields[0])
	if err != nil || month < 1 || month > 12 {
		return malformed("invalid month " + strconv.Quote(fields[0]))
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil || day < 1 || day > daysIn(time.Month(month), year) {
		return malformed("invalid day " + strconv.Quote(fields[1]))
	}

	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, dekadLength-1), nil
}

func parseMonth(filename, token string, year int) (time.Time, time.Time, error) {
	// time.Parse matches month names without regard to case.
	parsed, err := time.Parse("Jan", token)
	if err != nil {
		return time.Time{}, time.Time{}, &MalformedFilenameError{
			Filename: filename,
			Kind:     Monthly,
			Reason:   "invalid month abbreviation " + strconv.Quote(token),
		}
	}

	start := time.Date(year, parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
