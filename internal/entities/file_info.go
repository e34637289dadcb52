package entities

import (
	"time"
)

// FileInfo representa un archivo en disco con los metadatos necesarios.
// Añadimos tags `json` para serialización.
type FileInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size_bytes"`
	ModTime  time.Time `json:"mod_time"`
	DeviceID uint64    `json:"device_id"`
	Inode    uint64    `json:"inode"`
	IsLink   bool      `json:"is_symlink,omitempty"` // symlink seguido; el resto de campos son del destino
}

// FileSet es un grupo de rutas con contenido idéntico.
// No verifica nada: quien llama a Push ya comprobó la equivalencia.
type FileSet struct {
	Paths []string `json:"paths"`
}

// NewFileSet crea un grupo con una sola ruta
func NewFileSet(path string) *FileSet {
	return &FileSet{Paths: []string{path}}
}

// Push agrega una ruta al grupo
func (fs *FileSet) Push(path string) {
	fs.Paths = append(fs.Paths, path)
}

func (fs *FileSet) Len() int {
	return len(fs.Paths)
}
