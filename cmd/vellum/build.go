package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vellum-web/vellum"
	"github.com/vellum-web/vellum/internal/build"
	"github.com/vellum-web/vellum/internal/config"
	"github.com/vellum-web/vellum/internal/search"
)

func buildCmd() *cobra.Command {
	var (
		output string
		minify bool
		deploy bool
		clean  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the site",
		Long: `Generate every page of the site into the output directory.

This command:
  • Renders static templates as standalone pages
  • Expands hook-bound templates into one page per item
  • Minifies HTML output
  • Writes a search index (if enabled)

Examples:
  vellum build
  vellum build --output=dist
  vellum build --deploy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(output, minify, deploy, clean)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from vellum.json)")
	cmd.Flags().BoolVar(&minify, "minify", true, "Minify HTML output")
	cmd.Flags().BoolVar(&deploy, "deploy", false, "Upload pages to the configured S3 bucket")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean output directory before build")

	return cmd
}

func runBuild(output string, minify, deploy, clean bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Build.Output = output
	}
	if !minify {
		cfg.Build.Minify = false
	}

	engine, err := vellum.New(vellum.Options{Config: cfg})
	if err != nil {
		return err
	}

	var sink build.Sink
	if deploy {
		if cfg.Deploy.S3.Bucket == "" {
			return fmt.Errorf("--deploy requires deploy.s3.bucket in %s", config.ConfigFileName)
		}
		sink, err = build.NewS3SinkFromConfig(ctx, cfg.Deploy.S3)
		if err != nil {
			return err
		}
		info("Deploying to s3://%s", cfg.Deploy.S3.Bucket)
	} else {
		if clean {
			info("Cleaning %s...", cfg.Build.Output)
			if err := os.RemoveAll(cfg.OutputDir()); err != nil {
				return err
			}
		}
		sink = build.NewDirSink(cfg.OutputDir())
	}

	fmt.Println("  Generating pages...")
	fmt.Println()

	builder := build.New(engine, build.Options{
		Sink: sink,
		OnProgress: func(done, total int) {
			info("rendered %d/%d pages", done, total)
		},
	})

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	success("Generated %d pages in %s", result.Pages(), result.Duration.Round(1000000))
	info("static: %d, expanded: %d, skipped: %d", result.StaticPages, result.DynamicPages, result.Skipped)
	for _, d := range result.Diagnostics {
		warn("%s: %s", d.Route, d.Detail)
	}

	if cfg.Search.Enabled {
		if deploy {
			warn("search index skipped: index is built from the local output directory")
		} else {
			entries, err := search.BuildIndex(cfg.OutputDir(), cfg.Search.Output, cfg.Mode())
			if err != nil {
				return err
			}
			success("Indexed %d pages into %s", entries, cfg.Search.Output)
		}
	}

	return nil
}
