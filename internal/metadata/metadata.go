package metadata

import (
	"cmp"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Kind clasifica el tipo de nodo. Forma parte del orden total.
type Kind uint8

const (
	KindRegular Kind = iota
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// LinkPolicy decide si se hace stat sobre el enlace simbólico o sobre su destino.
type LinkPolicy int

const (
	NoFollow LinkPolicy = iota // Default: Lstat, un symlink nunca es igual a su destino
	Follow
)

// ParseLinkPolicy traduce la opción follow_symlinks de la configuración.
func ParseLinkPolicy(follow bool) LinkPolicy {
	if follow {
		return Follow
	}
	return NoFollow
}

// Metadata es la foto barata (solo stat) de un archivo.
// Solo Dev, Size y Kind participan en el orden; el resto es informativo.
type Metadata struct {
	Dev     uint64
	Size    int64
	Kind    Kind
	Inode   uint64
	Nlink   uint64
	ModTime time.Time
}

// Key es la parte de Metadata que decide el orden. Sirve como clave de mapa.
type Key struct {
	Dev  uint64
	Size int64
	Kind Kind
}

func (m Metadata) Key() Key {
	return Key{Dev: m.Dev, Size: m.Size, Kind: m.Kind}
}

// SameInode indica si ambos describen el mismo inodo (hardlinks ya existentes).
// En sistemas sin inodos (MemMapFs, Windows) siempre es false.
func (m Metadata) SameInode(other Metadata) bool {
	if m.Inode == 0 && other.Inode == 0 {
		return false
	}
	return m.Dev == other.Dev && m.Inode == other.Inode
}

// Compare ordena por dispositivo, después tamaño y después tipo.
// Distinto dispositivo o tamaño implica archivos distintos: un hardlink no
// puede cruzar dispositivos.
func Compare(a, b Metadata) int {
	if c := cmp.Compare(a.Dev, b.Dev); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Size, b.Size); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}

// FromPath hace stat de path sin leer contenido.
func FromPath(fs afero.Fs, path string, policy LinkPolicy) (Metadata, error) {
	info, err := stat(fs, path, policy)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "stat %s", path)
	}
	return FromFileInfo(info), nil
}

// FromFileInfo construye Metadata a partir de un stat ya hecho.
func FromFileInfo(info os.FileInfo) Metadata {
	dev, ino, nlink := sysInfo(info)
	return Metadata{
		Dev:     dev,
		Size:    info.Size(),
		Kind:    kindOf(info.Mode()),
		Inode:   ino,
		Nlink:   nlink,
		ModTime: info.ModTime(),
	}
}

func stat(fs afero.Fs, path string, policy LinkPolicy) (os.FileInfo, error) {
	if policy == NoFollow {
		if l, ok := fs.(afero.Lstater); ok {
			info, _, err := l.LstatIfPossible(path)
			return info, err
		}
	}
	return fs.Stat(path)
}

func kindOf(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindRegular
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}
