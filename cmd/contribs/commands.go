package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"contribs/internal/data/store"
	"contribs/internal/engine/resolver"
	"contribs/internal/shared/util"

	"github.com/spf13/cobra"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func newResolveCmd() *cobra.Command {
	var (
		format string
		sorted bool
		root   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "resolve FILE...",
		Short: "Print the standard-library loci of Python files",
		Long: "Resolves each file on its own and prints its loci, grouped by import in discovery order. " +
			"Relative imports are anchored at --root, or at the top of the file's package when --root is empty.",
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			results := make([]fileLoci, 0, len(args))
			failed := 0
			for _, path := range args {
				base := root
				if base == "" {
					base = resolver.PackageRoot(path)
				}
				analysis, err := rt.app.AnalyzeFile(ctx, base, path)
				if err != nil {
					slog.Error("resolve failed", "path", path, "error", err)
					failed++
					continue
				}
				loci := analysis.Loci
				if sorted {
					loci = resolver.SortByLine(loci)
				}
				results = append(results, fileLoci{Path: path, Loci: loci})
			}

			if output != "" {
				data, err := renderLoci(format, results)
				if err != nil {
					return err
				}
				if err := util.WriteFileWithDirs(output, data, 0o644); err != nil {
					return err
				}
			} else if err := writeLoci(cmd.OutOrStdout(), format, results); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) could not be resolved", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json|yaml|text")
	cmd.Flags().BoolVar(&sorted, "sort", false, "order loci by line instead of by import")
	cmd.Flags().StringVar(&root, "root", "", "directory that relative imports are anchored at")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [PATH...]",
		Short: "Resolve local source trees and store their contributions",
		Long:  "Each PATH is stored as the repository local/<base name of PATH>, replacing its previous contributions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			if len(args) == 0 {
				args = []string{"."}
			}
			rt, err := newRuntime(ctx, runtimeOptions{store: true, serve: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.app.ScanLocal(ctx, args)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), "Scan complete", summary)
			return nil
		},
	}
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Clone the configured repositories and store their contributions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{store: true, github: true, serve: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(rt.cfg.Repos) == 0 {
				return fmt.Errorf("no repositories configured; add [[repos]] entries to the config file")
			}
			summary, err := rt.app.Crawl(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), "Crawl complete", summary)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch PATH",
		Short: "Scan PATH, then keep its stored contributions current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{store: true, serve: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.app.ScanLocal(ctx, args)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), "Initial scan", summary)
			return rt.app.Watch(ctx, args[0])
		},
	}
}

func newStatsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the catalogue and the most used identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{store: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			cat, found, err := rt.store.LoadCatalogue()
			if err != nil {
				return err
			}
			idents, err := rt.store.TopIdents(top)
			if err != nil {
				return err
			}
			licenses, err := rt.store.LoadLicenses()
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), cat, found, idents, licenses)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "number of identifiers to list")
	return cmd
}

func newStdlibCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdlib",
		Short: "Print the effective standard-library module set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			for _, name := range rt.app.Stdlib.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var (
		format  string
		page    int
		perPage int
	)
	cmd := &cobra.Command{
		Use:   "show IDENT",
		Short: "List stored contributions that use a qualified identifier",
		Long:  "IDENT is a qualified identifier such as os.path.join. Contributions are paged in repository and path order.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{store: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.store.ContribsByIdent(args[0], page, perPage)
			if err != nil {
				return err
			}
			return writeIdentPage(cmd.OutOrStdout(), format, newIdentPage(args[0], result))
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: json|yaml|text")
	cmd.Flags().IntVar(&page, "page", 1, "page to show, starting at 1")
	cmd.Flags().IntVar(&perPage, "per-page", store.DefaultPerPage, "contributions per page")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API with /metrics and /health until interrupted",
		Long: "Serves GET /api/python, /api/python/licenses and /api/python/{ns}/{api}?page=N from the store, " +
			"with the OpenAPI document at /api/openapi.json. The address comes from --metrics-addr or the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, runtimeOptions{store: true, serve: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.Observability.MetricsAddr == "" {
				return fmt.Errorf("no listen address; pass --metrics-addr or set observability.metrics_addr")
			}
			<-ctx.Done()
			return nil
		},
	}
}
