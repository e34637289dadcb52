package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/soyunomas/duplink/internal/config"
	"github.com/soyunomas/duplink/internal/engine"
	"github.com/soyunomas/duplink/internal/logger"
)

var (
	cfgFile    string
	jsonOutput bool
	scriptPath string
)

var rootCmd = &cobra.Command{
	Use:   "duplink [dirs...]",
	Short: "Encuentra archivos idénticos que se pueden unir con hardlinks",
	Long: `Recorre los directorios indicados y agrupa los archivos con contenido idéntico
dentro del mismo dispositivo. Primero descarta por tamaño, después compara el
contenido por bloques, leyendo cada archivo como mucho una vez.

No modifica nada: muestra los grupos, los exporta en JSON (--json) o genera un
script de revisión con los comandos ln (--output).`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "Archivo de configuración (default: $HOME/.duplink/config.yaml)")
	f.Int64("min-size", 1024, "Tamaño mínimo en bytes")
	f.String("keep", "shortest", "Criterio: shortest, longest, oldest, newest")
	f.Bool("follow-symlinks", false, "Seguir enlaces simbólicos a archivos")
	f.Int("workers", 0, "Goroutines comparando en paralelo (default: núm. de CPUs)")
	f.String("log-level", "info", "Nivel de log: trace, debug, info, warn, error")
	f.String("log-file", "", "Archivo de log adicional")
	f.BoolVar(&jsonOutput, "json", false, "Salida en formato JSON a stdout")
	f.StringVarP(&scriptPath, "output", "o", "", "Genera un script .sh con los ln -f")
	rootCmd.MarkFlagsMutuallyExclusive("json", "output")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return err
	}
	defer logger.Close()

	strategy, err := engine.ParseStrategy(cfg.Keep.Strategy)
	if err != nil {
		return err
	}

	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonOutput {
		fmt.Printf("🚀 duplink - Escaneando: %s\n", strings.Join(roots, ", "))
		fmt.Printf("⚖️  Estrategia: Mantener %s\n", strings.ToUpper(strategy.String()))
		fmt.Println("------------------------------------------------")
	}

	runner := engine.New(afero.NewOsFs(), engine.Options{
		MinSize:        cfg.Scanner.MinSize,
		Excludes:       cfg.Scanner.Excludes,
		Strategy:       strategy,
		Workers:        cfg.Performance.Workers,
		FollowSymlinks: cfg.Scanner.FollowSymlinks,
		FirstBlock:     cfg.Hasher.FirstBlock,
		MaxBlock:       cfg.Hasher.MaxBlock,
	})

	stats, err := runner.Run(ctx, roots...)
	if err != nil {
		return err
	}

	report := generateReport(stats, roots, strategy.String())

	switch {
	case jsonOutput:
		return printJSON(os.Stdout, report)
	case scriptPath != "":
		if err := generateShellScript(report, scriptPath); err != nil {
			return errors.Wrap(err, "generando script")
		}
		fmt.Printf("\n📄 Script generado: %s\n", scriptPath)
		return nil
	default:
		printResults(os.Stdout, report)
		return nil
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if jsonOutput {
			fmt.Printf(`{"error": %q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "❌ Error fatal: %v\n", err)
		}
		os.Exit(1)
	}
}
