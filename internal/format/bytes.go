// Package format provides shared formatting utilities.
package format

import "fmt"

var units = []string{"KB", "MB", "GB", "TB"}

// Bytes formats a byte count as a human-readable string using binary
// multiples (e.g. "3.0 GB", "512 B").
func Bytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b) / 1024
	u := 0
	for v >= 1024 && u < len(units)-1 {
		v /= 1024
		u++
	}
	return fmt.Sprintf("%.1f %s", v, units[u])
}
