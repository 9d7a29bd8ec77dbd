package glm

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// File names follow the GOES-R ground system convention, for example
// OR_GLM-L2-LCFA_G16_s20211400000000_e20211400000200_c20211400000220.nc.
// Each time token is YYYYJJJHHMMSSt: year, day of year, hour, minute,
// second and tenths of a second.
var filenamePattern = regexp.MustCompile(`^OR_([A-Z0-9-]+)_(G\d{2})_s(\d{14})_e(\d{14})_c(\d{14})\.nc$`)

// Filename is the metadata encoded in a scan file name.
type Filename struct {
	Product   string
	Platform  string
	BeginTime time.Time
	EndTime   time.Time
	Created   time.Time
}

// ParseFilename extracts the product, platform and scan times from a base
// file name.
func ParseFilename(name string) (Filename, error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return Filename{}, fmt.Errorf("not a scan file name: %q", name)
	}

	begin, err := parseTimeToken(m[3])
	if err != nil {
		return Filename{}, fmt.Errorf("scan begin token of %q: %w", name, err)
	}
	end, err := parseTimeToken(m[4])
	if err != nil {
		return Filename{}, fmt.Errorf("scan end token of %q: %w", name, err)
	}
	created, err := parseTimeToken(m[5])
	if err != nil {
		return Filename{}, fmt.Errorf("creation token of %q: %w", name, err)
	}

	return Filename{
		Product:   m[1],
		Platform:  m[2],
		BeginTime: begin,
		EndTime:   end,
		Created:   created,
	}, nil
}

// parseTimeToken decodes a 14-digit YYYYJJJHHMMSSt token as UTC.
func parseTimeToken(tok string) (time.Time, error) {
	if len(tok) != 14 {
		return time.Time{}, fmt.Errorf("token %q: want 14 digits", tok)
	}
	year, _ := strconv.Atoi(tok[0:4])
	doy, _ := strconv.Atoi(tok[4:7])
	hour, _ := strconv.Atoi(tok[7:9])
	minute, _ := strconv.Atoi(tok[9:11])
	sec, _ := strconv.Atoi(tok[11:13])
	tenths, _ := strconv.Atoi(tok[13:14])

	daysInYear := 365
	if isLeap(year) {
		daysInYear = 366
	}
	switch {
	case doy < 1 || doy > daysInYear:
		return time.Time{}, fmt.Errorf("token %q: day of year %d out of range", tok, doy)
	case hour > 23:
		return time.Time{}, fmt.Errorf("token %q: hour %d out of range", tok, hour)
	case minute > 59:
		return time.Time{}, fmt.Errorf("token %q: minute %d out of range", tok, minute)
	case sec > 60:
		return time.Time{}, fmt.Errorf("token %q: second %d out of range", tok, sec)
	}

	t := time.Date(year, time.January, 1, hour, minute, sec, tenths*int(100*time.Millisecond), time.UTC)
	return t.AddDate(0, 0, doy-1), nil
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// FormatTimeToken renders t as a YYYYJJJHHMMSSt token. Sub-tenth precision
// is truncated.
func FormatTimeToken(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d%03d%02d%02d%02d%d",
		t.Year(), t.YearDay(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(100*time.Millisecond))
}

// FormatFilename builds a scan file name for the given product, platform
// and times.
func FormatFilename(product, platform string, begin, end, created time.Time) string {
	return fmt.Sprintf("OR_%s_%s_s%s_e%s_c%s.nc",
		product, platform, FormatTimeToken(begin), FormatTimeToken(end), FormatTimeToken(created))
}
