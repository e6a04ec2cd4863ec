package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┬  ┬  ┬ ┬┌┬┐
  ╚╗╔╝├┤ │  │  │ ││││
   ╚╝ └─┘┴─┘┴─┘└─┘┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "vellum",
		Short: "Template-driven static page engine",
		Long: `Vellum turns a directory of templates into a static site.

Templates render as-is; templates bound to a data hook expand into
one page per item. The same routing and rendering logic powers both
the production build and the live dev server. Features include:

  • Static and data-driven page generation
  • Flat or directory output paths
  • Hot reload development server
  • Fingerprinted asset resolution
  • Optional search index and S3 deployment`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		buildCmd(),
		devCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Vellum ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
