package listparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnixParser recognizes the classic "ls -l" listing format:
//
//	-rw-r--r--   1 user     group      1234 Sep 14 09:42 filename
//	drwxr-xr-x   5 user     group      4096 Sep 14  2023 dirname
//	lrwxrwxrwx   1 user     group         7 Sep 14 09:42 link -> target
type UnixParser struct{}

var unixLineRE = regexp.MustCompile(
	`^([a-zA-Z?-])([a-zA-Z-]{9})\s+(\d+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*)$`,
)

var unixMonths = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// IgnoresLine implements Parser.
func (UnixParser) IgnoresLine(line string) bool {
	return DefaultIgnoresLine(line)
}

// ParseLine implements Parser.
func (UnixParser) ParseLine(line string, timeShift int64, now time.Time) (*Record, error) {
	m := unixLineRE.FindStringSubmatch(line)
	if m == nil {
		return nil, failf(line, "does not match the Unix listing format")
	}
	typeChar, permBits, nlinkS, user, group, sizeS, month, day, timeOrYear, rest := m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8], m[9], m[10]

	mode, err := decodeUnixMode(typeChar, permBits)
	if err != nil {
		return nil, failf(line, err.Error())
	}

	nlink, _ := strconv.ParseInt(nlinkS, 10, 64)
	size, err := strconv.ParseInt(sizeS, 10, 64)
	if err != nil {
		return nil, failf(line, "invalid size field")
	}

	mtime, precision, err := parseUnixTimestamp(month, day, timeOrYear, timeShift, now)
	if err != nil {
		return nil, failf(line, err.Error())
	}

	name, target := splitSymlinkName(rest)

	return &Record{
		Mode:           mode,
		Nlink:          nlink,
		UID:            user,
		GID:            group,
		Size:           size,
		MTime:          mtime,
		MTimePrecision: precision,
		Name:           name,
		Target:         target,
	}, nil
}

// splitSymlinkName splits "name -> target" into (name, target); target is
// "" if there is no " -> " marker.
func splitSymlinkName(s string) (name string, target string) {
	if i := strings.Index(s, " -> "); i >= 0 {
		return s[:i], s[i+4:]
	}
	return s, ""
}

func decodeUnixMode(typeChar, permBits string) (uint32, error) {
	var mode uint32
	switch typeChar {
	case "d":
		mode |= ModeDir
	case "l":
		mode |= ModeSymlink
	case "-":
		// regular
	default:
		// closest analog: anything else (b, c, p, s, ?) is treated as a
		// plain file for stat purposes.
	}
	if len(permBits) != 9 {
		return 0, errTooShortPermField
	}
	triples := []struct {
		read, write, exec byte
		rBit, wBit, xBit  uint32
	}{
		{permBits[0], permBits[1], permBits[2], 0o400, 0o200, 0o100},
		{permBits[3], permBits[4], permBits[5], 0o040, 0o020, 0o010},
		{permBits[6], permBits[7], permBits[8], 0o004, 0o002, 0o001},
	}
	for _, t := range triples {
		if t.read == 'r' {
			mode |= t.rBit
		}
		if t.write == 'w' {
			mode |= t.wBit
		}
		switch t.exec {
		case 'x', 's', 't':
			mode |= t.xBit
		case 'S', 'T':
			// setuid/setgid/sticky set but exec bit is not
		}
	}
	return mode, nil
}

var errTooShortPermField = &staticErr{"permission field must be 9 characters"}

type staticErr struct{ s string }

func (e *staticErr) Error() string { return e.s }

// parseUnixTimestamp resolves the month/day/time-or-year triple into a
// UTC mtime and its precision, per spec §4.3: an "HH:MM" token means a
// recent entry (minute precision); a four digit year means an older
// entry (day precision). For "HH:MM", the year is the server's current
// year (now+timeShift), stepped back one year if the resulting timestamp
// would be more than a day in the future relative to the server's
// current time.
func parseUnixTimestamp(month, day, timeOrYear string, timeShift int64, now time.Time) (time.Time, int64, error) {
	monthNum, ok := unixMonths[strings.ToLower(month)]
	if !ok {
		return time.Time{}, 0, errBadMonth
	}
	dayNum, err := strconv.Atoi(day)
	if err != nil || dayNum < 1 || dayNum > 31 {
		return time.Time{}, 0, errBadDay
	}

	serverNow := now.Add(time.Duration(timeShift) * time.Second).UTC()

	if strings.Contains(timeOrYear, ":") {
		parts := strings.SplitN(timeOrYear, ":", 2)
		if len(parts) != 2 {
			return time.Time{}, 0, errBadTime
		}
		hour, err1 := strconv.Atoi(parts[0])
		minute, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return time.Time{}, 0, errBadTime
		}
		year := serverNow.Year()
		candidate := time.Date(year, time.Month(monthNum), dayNum, hour, minute, 0, 0, time.UTC)
		if candidate.Sub(serverNow) > 24*time.Hour {
			candidate = time.Date(year-1, time.Month(monthNum), dayNum, hour, minute, 0, 0, time.UTC)
		}
		return shiftToUTCClamped(candidate, timeShift), 60, nil
	}

	year, err := strconv.Atoi(timeOrYear)
	if err != nil || len(timeOrYear) != 4 {
		return time.Time{}, 0, errBadYear
	}
	candidate := time.Date(year, time.Month(monthNum), dayNum, 0, 0, 0, 0, time.UTC)
	return shiftToUTCClamped(candidate, timeShift), 86400, nil
}

// shiftToUTCClamped interprets t as a server-local timestamp and converts
// it to UTC by subtracting timeShift, clamping negative results to the
// epoch (spec §3: "mtime >= 0.0").
func shiftToUTCClamped(t time.Time, timeShift int64) time.Time {
	utc := t.Add(-time.Duration(timeShift) * time.Second)
	if utc.Before(time.Unix(0, 0).UTC()) {
		return time.Unix(0, 0).UTC()
	}
	return utc
}

var (
	errBadMonth = &staticErr{"unrecognized month name"}
	errBadDay   = &staticErr{"day out of range"}
	errBadTime  = &staticErr{"malformed HH:MM time field"}
	errBadYear  = &staticErr{"malformed year field"}
)
