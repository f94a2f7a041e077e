package listparse

import (
	"regexp"
	"strconv"
	"time"
)

// DOSParser recognizes the MS/DOS-style listing format some FTP servers
// emit:
//
//	10-23-01  03:25PM       <DIR>          dirname
//	10-23-01  03:25PM                 1234 filename
type DOSParser struct{}

var dosLineRE = regexp.MustCompile(
	`^(\d{2})-(\d{2})-(\d{2})\s+(\d{2}):(\d{2})(AM|PM)\s+(<DIR>|\d+)\s+(.*)$`,
)

// IgnoresLine implements Parser.
func (DOSParser) IgnoresLine(line string) bool {
	return DefaultIgnoresLine(line)
}

// ParseLine implements Parser.
func (DOSParser) ParseLine(line string, timeShift int64, _ time.Time) (*Record, error) {
	m := dosLineRE.FindStringSubmatch(line)
	if m == nil {
		return nil, failf(line, "does not match the MS/DOS listing format")
	}
	monthS, dayS, yyS, hourS, minuteS, ampm, sizeOrDir, name := m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]

	month, _ := strconv.Atoi(monthS)
	day, _ := strconv.Atoi(dayS)
	yy, _ := strconv.Atoi(yyS)
	hour, _ := strconv.Atoi(hourS)
	minute, _ := strconv.Atoi(minuteS)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, failf(line, "month or day out of range")
	}

	year := 1900 + yy
	if yy < 70 {
		year = 2000 + yy
	}

	if ampm == "PM" && hour != 12 {
		hour += 12
	} else if ampm == "AM" && hour == 12 {
		hour = 0
	}

	local := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	mtime := shiftToUTCClamped(local, timeShift)

	var mode uint32
	var size int64
	if sizeOrDir == "<DIR>" {
		mode = ModeDir
	} else {
		var err error
		size, err = strconv.ParseInt(sizeOrDir, 10, 64)
		if err != nil {
			return nil, failf(line, "invalid size field")
		}
	}

	return &Record{
		Mode:           mode,
		Size:           size,
		MTime:          mtime,
		MTimePrecision: 60,
		Name:           name,
	}, nil
}
