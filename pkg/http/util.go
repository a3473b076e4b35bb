package http

import (
	"time"

	xutil "FundFlow/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseDate accepts YYYY-MM-DD, RFC3339 or unix seconds. Empty input yields
// the zero time, which storage queries treat as an open bound.
func ParseDate(s string) (time.Time, error) { return xutil.ParseDate(s) }
