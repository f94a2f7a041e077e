package listparse

import "time"

// Builtin returns the two bundled parsers, Unix first, in the order
// Detect tries them.
func Builtin() []Parser {
	return []Parser{UnixParser{}, DOSParser{}}
}

// Detect tries each candidate parser (typically Builtin()) against every
// non-ignored line in lines, in order, and returns the first parser that
// successfully parses at least one line. It returns nil if no parser
// recognizes anything, which the caller should treat as "listing is
// empty or unrecognized" rather than an error — an empty directory
// legitimately has no lines to detect a format from.
func Detect(candidates []Parser, lines []string, timeShift int64, now time.Time) Parser {
	for _, p := range candidates {
		for _, line := range lines {
			if p.IgnoresLine(line) {
				continue
			}
			if _, err := p.ParseLine(line, timeShift, now); err == nil {
				return p
			}
		}
	}
	return nil
}
