package engine

import (
	"slices"
	"strings"

	"github.com/soyunomas/duplink/internal/entities"
)

// sortGroups organiza los archivos dentro de cada grupo según la estrategia.
// El objetivo es que el archivo en la posición [0] sea el "Keeper" (Original).
// Los symlinks seguidos van siempre al final: un symlink nunca es Keeper.
func sortGroups(groups []*Group, files map[string]*entities.FileInfo, strategy KeepStrategy) {
	for _, group := range groups {
		if group.Len() < 2 {
			continue
		}

		slices.SortFunc(group.Paths, func(p1, p2 string) int {
			if l1, l2 := isLink(files, p1), isLink(files, p2); l1 != l2 {
				if l1 {
					return 1
				}
				return -1
			}

			switch strategy {

			case KeepShortestPath:
				// [0] debe ser el más corto
				if len(p1) != len(p2) {
					return len(p1) - len(p2)
				}

			case KeepLongestPath:
				// [0] debe ser el más largo
				if len(p1) != len(p2) {
					return len(p2) - len(p1)
				}

			case KeepOldest, KeepNewest:
				f1, f2 := files[p1], files[p2]
				if f1 != nil && f2 != nil && !f1.ModTime.Equal(f2.ModTime) {
					c := f1.ModTime.Compare(f2.ModTime)
					if strategy == KeepNewest {
						c = -c
					}
					return c
				}
			}

			// --- CRITERIOS DE DESEMPATE (Tie-Breakers) ---
			// 1. Longitud de ruta (si no fue el criterio principal)
			if len(p1) != len(p2) {
				if strategy == KeepLongestPath {
					return len(p2) - len(p1)
				}
				return len(p1) - len(p2)
			}

			// 2. Alfabético (último recurso)
			return strings.Compare(p1, p2)
		})
	}
}

func isLink(files map[string]*entities.FileInfo, path string) bool {
	f := files[path]
	return f != nil && f.IsLink
}
