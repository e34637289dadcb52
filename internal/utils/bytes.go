package utils

import "github.com/dustin/go-humanize"

// ByteCountDecimal formatea bytes en unidades SI (kB, MB, GB...).
func ByteCountDecimal(b int64) string {
	if b < 0 {
		return "-" + humanize.Bytes(uint64(-b))
	}
	return humanize.Bytes(uint64(b))
}
