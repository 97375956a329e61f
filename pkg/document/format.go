package document

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with 1024-based units and at most two
// decimals: 0 → "0 Bytes", 2048000 → "1.95 MB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatAge renders a modification time relative to now. Within the last hour
// it is "Just now", within a week a relative phrase ("3 hours ago", "2 days
// ago"), otherwise the calendar date.
func FormatAge(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		return "Just now"
	case diff < 7*24*time.Hour:
		return humanize.RelTime(t, now, "ago", "from now")
	default:
		return t.Local().Format("2006-01-02")
	}
}

// FormatPath renders breadcrumbs as "Home > A > B".
func FormatPath(crumbs []string) string {
	if len(crumbs) == 0 {
		return "Home"
	}
	return strings.Join(crumbs, " > ")
}
