package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/soyunomas/duplink/internal/engine"
	"github.com/soyunomas/duplink/internal/entities"
	"github.com/soyunomas/duplink/internal/utils"
)

// --- ESTRUCTURAS PARA EL REPORTE FINAL ---

type Report struct {
	Summary  Summary       `json:"summary"`
	Groups   []GroupResult `json:"groups"`
	Metadata Metadata      `json:"metadata"`
}

type Metadata struct {
	ScannedPaths []string  `json:"scanned_paths"`
	Strategy     string    `json:"strategy"`
	Timestamp    time.Time `json:"timestamp"`
	Duration     string    `json:"duration_human"`
}

type Summary struct {
	TotalFilesScanned int64  `json:"total_files_scanned"`
	Candidates        int64  `json:"candidates"`
	TotalGroups       int    `json:"total_groups"`
	TotalDuplicates   int64  `json:"total_duplicates"`
	TotalHardLinks    int64  `json:"total_hard_links"`
	Excluded          int    `json:"excluded"`
	BytesRead         int64  `json:"bytes_read"`
	BytesSaved        int64  `json:"bytes_saved"`
	BytesSavedHuman   string `json:"bytes_saved_human"`
}

type GroupResult struct {
	Hash      string             `json:"hash"`
	Size      int64              `json:"file_size"`
	Keeper    *entities.FileInfo `json:"keeper"`
	Victims   []Victim           `json:"victims"`
	HardLinks []string           `json:"hardlinks"`
	Symlinks  []string           `json:"symlinks,omitempty"`
}

type Victim struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type sysID struct {
	dev, inode uint64
}

func generateReport(stats *engine.Stats, roots []string, strategy string) Report {
	rep := Report{
		Metadata: Metadata{
			ScannedPaths: roots,
			Strategy:     strategy,
			Timestamp:    time.Now(),
			Duration:     stats.Duration.String(),
		},
		Summary: Summary{
			TotalFilesScanned: stats.TotalFilesScanned,
			Candidates:        stats.Candidates,
			Excluded:          len(stats.Excluded),
			BytesRead:         stats.BytesRead,
		},
		Groups: []GroupResult{},
	}

	for _, group := range stats.Groups {
		if group.Len() < 2 {
			continue
		}

		keeper := stats.Files[group.Paths[0]]
		if keeper == nil {
			keeper = &entities.FileInfo{Path: group.Paths[0], Size: group.Size}
		}
		// Los symlinks van al final del grupo; si el primero lo es, no hay
		// ningún archivo real que enlazar.
		if keeper.IsLink {
			continue
		}
		gRes := GroupResult{
			Hash:   fmt.Sprintf("%016x", group.Hash),
			Size:   group.Size,
			Keeper: keeper,
		}

		// Sin inodo (Windows, filesystems en memoria) no hay hardlinks previos que detectar.
		seenInodes := make(map[sysID]bool)
		if keeper.Inode != 0 {
			seenInodes[sysID{keeper.DeviceID, keeper.Inode}] = true
		}

		for _, path := range group.Paths[1:] {
			file := stats.Files[path]
			if file == nil {
				file = &entities.FileInfo{Path: path, Size: group.Size}
			}
			// Un symlink seguido comparte inodo con su destino: ni víctima ni hardlink.
			if file.IsLink {
				gRes.Symlinks = append(gRes.Symlinks, file.Path)
				continue
			}
			id := sysID{file.DeviceID, file.Inode}

			if file.Inode != 0 && seenInodes[id] {
				gRes.HardLinks = append(gRes.HardLinks, file.Path)
				rep.Summary.TotalHardLinks++
				continue
			}

			gRes.Victims = append(gRes.Victims, Victim{
				Path: file.Path,
				Size: file.Size,
			})
			rep.Summary.TotalDuplicates++
			rep.Summary.BytesSaved += file.Size
			if file.Inode != 0 {
				seenInodes[id] = true
			}
		}

		rep.Groups = append(rep.Groups, gRes)
	}

	rep.Summary.TotalGroups = len(rep.Groups)
	rep.Summary.BytesSavedHuman = utils.ByteCountDecimal(rep.Summary.BytesSaved)
	return rep
}

// printResults muestra los grupos en modo texto (dry run).
func printResults(w io.Writer, r Report) {
	if r.Summary.TotalDuplicates == 0 {
		fmt.Fprintln(w, "✅ ¡Limpio! No hay nada que enlazar.")
		if r.Summary.TotalHardLinks > 0 {
			fmt.Fprintf(w, "🔗 %d archivos ya eran hardlinks.\n", r.Summary.TotalHardLinks)
		}
		return
	}

	fmt.Fprintln(w, "🔴 DUPLICADOS ENCONTRADOS:")
	for _, g := range r.Groups {
		fmt.Fprintf(w, "   📦 Grupo (Size: %s) | 👑 KEEPER: %s\n", utils.ByteCountDecimal(g.Size), g.Keeper.Path)

		for _, hl := range g.HardLinks {
			fmt.Fprintf(w, "      🔗 [HardLink]: %s (0B)\n", hl)
		}
		for _, v := range g.Victims {
			fmt.Fprintf(w, "      🧷 [Enlazable]: %s\n", v.Path)
		}
		for _, l := range g.Symlinks {
			fmt.Fprintf(w, "      ↪️  [Symlink]: %s\n", l)
		}
		fmt.Fprintln(w, "")
	}

	fmt.Fprintln(w, "------------------------------------------------")
	fmt.Fprintf(w, "🏁 Escaneo terminado. Archivos enlazables: %d\n", r.Summary.TotalDuplicates)
	fmt.Fprintf(w, "💾 Espacio recuperable: %s\n", r.Summary.BytesSavedHuman)
	if r.Summary.Excluded > 0 {
		fmt.Fprintf(w, "⚠️  %d archivos excluidos por errores de lectura\n", r.Summary.Excluded)
	}
	fmt.Fprintln(w, "💡 Opciones disponibles:")
	fmt.Fprintln(w, "   --output -> Generar script de revisión con ln -f")
	fmt.Fprintln(w, "   --json   -> Reporte completo en JSON")
}

// shellQuote encierra s entre comillas simples; dentro de ellas sh no
// interpreta nada salvo la propia comilla, que se escribe como '\''.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// generateShellScript escribe un ln -f por cada víctima apuntando a su Keeper.
// Las rutas solo aparecen entrecomilladas: nunca en comentarios.
func generateShellScript(r Report, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#!/bin/sh\n")
	fmt.Fprintf(w, "# Generado por duplink\n")
	fmt.Fprintf(w, "set -e\n")
	fmt.Fprintf(w, "echo 'Iniciando enlazado...'\n\n")

	for _, g := range r.Groups {
		if len(g.Victims) == 0 {
			continue
		}
		fmt.Fprintf(w, "# Group Hash: %s\n", g.Hash)
		keeper := shellQuote(g.Keeper.Path)
		for _, v := range g.Victims {
			fmt.Fprintf(w, "ln -f -- %s %s\n", keeper, shellQuote(v.Path))
		}
		fmt.Fprintf(w, "\n")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Chmod(0755)
}

func printJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
