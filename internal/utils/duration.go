package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders d as "1d 2h 3m 4s", dropping zero units.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Truncate(time.Second)
	units := []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	var parts []string
	for _, unit := range units {
		if n := d / unit.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit.suffix))
			d -= n * unit.size
		}
	}
	return strings.Join(parts, " ")
}
