package entities

import (
	"fmt"
	"strings"
	"time"
)

// dueDateLayouts lists the accepted due date formats, most specific first.
// The bare date and minute-precision layouts are what HTML date and
// datetime-local inputs submit; both are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate parses a due date. An empty input means no due date and
// returns nil without error.
func ParseDueDate(input string) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", input)
}
