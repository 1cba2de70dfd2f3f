package highway

import (
	"fmt"
	"strconv"
	"strings"

	perr "transitsync/internal/platform/errors"
)

// The service decorates timestamps as "/Date(<epoch millis><tz offset>)/",
// e.g. "/Date(1540688390000+0200)/". The millis are already UTC; the offset
// suffix only describes the local wall clock and is ignored on parse

// lowerBoundToken renders an inclusive lower bound in Unix seconds
func lowerBoundToken(ts int64) string {
	return fmt.Sprintf("/Date(%d000+0000)/", ts)
}

// upperBoundToken renders an inclusive upper bound in Unix seconds, padded to
// the last millisecond of the second
func upperBoundToken(ts int64) string {
	return fmt.Sprintf("/Date(%d999+0000)/", ts)
}

// epochFromToken extracts the Unix-seconds epoch from a decorated timestamp.
// Only the fixed-width 10-digit seconds portion is read; sub-second precision
// and the offset are discarded
func epochFromToken(tok string) (int64, error) {
	if !strings.HasPrefix(tok, "/Date(") || len(tok) < 16 {
		return 0, perr.Protocolf("malformed timestamp token %q", tok)
	}
	sec, err := strconv.ParseInt(tok[6:16], 10, 64)
	if err != nil {
		return 0, perr.Protocolf("malformed timestamp token %q", tok)
	}
	return sec, nil
}
