package fluxgraph

import (
	"strconv"
	"strings"
)

// ParseDuration parses a human duration of the form "<int><unit>" with units
// s, m, h, d (case-insensitive) and returns milliseconds. It deliberately
// does not delegate to time.ParseDuration: the wire format here is a single
// integer magnitude plus one unit letter, not Go's composite duration
// grammar, and window specs need the exact token back for output keys.
func ParseDuration(s string) (int64, error) {
	if s == "" {
		return 0, NewFlowError(KindMalformedDuration, "", errEmptyDuration)
	}
	unit := s[len(s)-1:]
	var scale int64
	switch strings.ToLower(unit) {
	case "s":
		scale = 1000
	case "m":
		scale = 60 * 1000
	case "h":
		scale = 60 * 60 * 1000
	case "d":
		scale = 24 * 60 * 60 * 1000
	default:
		return 0, NewFlowError(KindMalformedDuration, "", errUnknownUnit)
	}
	numPart := s[:len(s)-1]
	if numPart == "" {
		return 0, NewFlowError(KindMalformedDuration, "", errMissingNumber)
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, NewFlowError(KindMalformedDuration, "", errMissingNumber)
	}
	return n * scale, nil
}

var (
	errEmptyDuration = flowErrString("empty duration string")
	errUnknownUnit   = flowErrString("unknown duration unit, expected one of s, m, h, d")
	errMissingNumber = flowErrString("missing or invalid numeric magnitude")
)

type flowErrString string

func (e flowErrString) Error() string { return string(e) }
