//go:build unix

package metadata

import (
	"os"
	"syscall"
)

// sysInfo extrae Dev, Inode y Nlink de forma "segura".
func sysInfo(info os.FileInfo) (dev, ino, nlink uint64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return 0, 0, 0
	}
	return uint64(st.Dev), uint64(st.Ino), uint64(st.Nlink) // #nosec G115
}
