package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/graph"
	"github.com/pakstream/packlink/optimizer"
	"github.com/pakstream/packlink/redirect"
	"github.com/pakstream/packlink/resolve"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "packlink",
		Short:         "Offline package-graph optimizer for streaming loaders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newOptimizeCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildLogger wires one zap logger into every package-level logger slot.
func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	resolve.SetLogger(log.Named("resolve"))
	graph.SetLogger(log.Named("graph"))
	redirect.SetLogger(log.Named("redirect"))
	return log, nil
}

func newOptimizeCmd() *cobra.Command {
	var (
		manifestPath string
		outDir       string
		target       string
		workers      int
		redirectsKV  []string
	)

	cmd := &cobra.Command{
		Use:   "optimize [package files...]",
		Short: "Optimize cooked packages into a pre-linked container",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := buildLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			inputs, redirects, err := gatherInputs(manifestPath, args, redirectsKV, &outDir, &target, &workers)
			if err != nil {
				return err
			}

			opts := []optimizer.Option{
				optimizer.WithLogger(log.Named("optimizer")),
				optimizer.WithTarget(target),
			}
			if workers > 0 {
				opts = append(opts, optimizer.WithWorkers(workers))
			}

			res, err := optimizer.New(opts...).Run(cmd.Context(), inputs, redirects)
			if err != nil {
				return err
			}

			reportDiagnostics(log, res)
			if outDir == "" {
				outDir = "."
			}
			return writeOutput(outDir, res)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "config", "c", "", "YAML build manifest")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	cmd.Flags().StringVarP(&target, "target", "t", "default", "target platform identifier")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "worker count (0 = GOMAXPROCS)")
	cmd.Flags().StringArrayVarP(&redirectsKV, "redirect", "r", nil, "package redirect old=new (repeatable)")
	return cmd
}

// gatherInputs merges the build manifest with command line arguments. Flags
// given explicitly win over manifest values.
func gatherInputs(manifestPath string, args, redirectsKV []string, outDir, target *string, workers *int) ([]optimizer.Input, redirect.Map, error) {
	var inputs []optimizer.Input
	redirects := make(redirect.Map)

	if manifestPath != "" {
		cfg, err := optimizer.LoadConfig(manifestPath)
		if err != nil {
			return nil, nil, err
		}
		inputs, err = cfg.Inputs()
		if err != nil {
			return nil, nil, err
		}
		for from, to := range cfg.RedirectMap() {
			redirects[from] = to
		}
		if *outDir == "" {
			*outDir = cfg.OutputDir
		}
		if *target == "default" && cfg.Target != "" {
			*target = cfg.Target
		}
		if *workers == 0 {
			*workers = cfg.Workers
		}
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read package buffer: %w", err)
		}
		inputs = append(inputs, optimizer.Input{Data: data})
	}

	for _, kv := range redirectsKV {
		from, to, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, nil, fmt.Errorf("bad redirect %q, want old=new", kv)
		}
		redirects[from] = to
	}

	return inputs, redirects, nil
}

func reportDiagnostics(log *zap.Logger, res *optimizer.Result) {
	var warnings, errors int
	for _, p := range res.Packages {
		for _, d := range p.Diags {
			if d.Severity == diag.SeverityError {
				errors++
				log.Error("package diagnostic", zap.String("package", p.Name), zap.String("diag", d.Error()))
			} else {
				warnings++
				log.Warn("package diagnostic", zap.String("package", p.Name), zap.String("diag", d.Error()))
			}
		}
	}
	log.Info("optimization finished",
		zap.Int("packages", len(res.Packages)),
		zap.Int("warnings", warnings),
		zap.Int("errors", errors))
}

// writeOutput lays the container down on disk: one buffer per package plus
// the manifest and the script table.
func writeOutput(dir string, res *optimizer.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for id, buf := range res.Buffers {
		name := fmt.Sprintf("%016x.ppkg", uint64(id))
		if err := os.WriteFile(filepath.Join(dir, name), buf, 0o644); err != nil {
			return fmt.Errorf("write package buffer: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "container.pcon"), res.ContainerData, 0o644); err != nil {
		return fmt.Errorf("write container manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scripts.pscr"), res.ScriptsData, 0o644); err != nil {
		return fmt.Errorf("write script table: %w", err)
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "inspect <file> [files...]",
		Short: "Dump optimized buffers, containers or script tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				return runInteractive(args)
			}
			for _, path := range args {
				if err := dumpFile(cmd.Context(), path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse packages in a TUI")
	return cmd
}

func dumpFile(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	switch format.Detect(data) {
	case format.KindOptimized:
		pkg, err := format.DecodeOptimized(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		fmt.Print(pkg.Dump())

	case format.KindContainer:
		m, err := format.DecodeContainer(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		fmt.Print(m.Dump())

	case format.KindScriptTable:
		t, err := format.DecodeScriptTable(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		fmt.Printf("script table: %d entries\n", len(t.Entries))
		for _, e := range t.Entries {
			fmt.Printf("  %016x %s\n", uint64(e.Hash), e.Path)
		}

	case format.KindLegacy:
		pkg, err := format.DecodeLegacy(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		fmt.Printf("legacy package %s: %d names, %d imports, %d exports, %d deps\n",
			pkg.Name, len(pkg.NameTable), len(pkg.Imports), len(pkg.Exports), len(pkg.Deps))

	default:
		return fmt.Errorf("%s: unrecognized buffer", path)
	}
	return nil
}
