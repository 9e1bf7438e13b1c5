package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2doc <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert markdown to PDF, Word or PNG")
	fmt.Fprintln(w, "  preview    Render markdown in the terminal")
	fmt.Fprintln(w, "  serve      Serve the md2doc website")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2doc help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2doc convert <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert markdown to PDF, Word or PNG.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown file, directory (non-recursive) or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -f, --format <list>       Formats: pdf, word, png (comma-separated, default pdf)")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "      --name <s>            Output base name (file or stdin input)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --backend <s>         Browser backend: rod, chromedp")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-conversion timeout (e.g., 30s)")
	fmt.Fprintln(w, "      --style <s>           Highlight style name, or asset directory path")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MD2DOC_CONFIG, MD2DOC_BACKEND, MD2DOC_STYLE, MD2DOC_TIMEOUT,")
	fmt.Fprintln(w, "  MD2DOC_BROWSER_BIN, MD2DOC_OUTPUT_DIR, MD2DOC_WORKERS, MD2DOC_LOG_LEVEL")
}

// printPreviewUsage prints usage for the preview command.
func printPreviewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2doc preview <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render markdown in the terminal.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown file or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -w, --width <n>           Word wrap column (0 = no wrap)")
	fmt.Fprintln(w, "      --style <s>           Style: auto, dark, light, notty")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2doc serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the md2doc website with an offline cache.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2doc config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdConvert:
		printConvertUsage(env.Stdout)
	case cmdPreview:
		printPreviewUsage(env.Stdout)
	case cmdServe:
		printServeUsage(env.Stdout)
	case cmdConfig:
		printConfigUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: md2doc version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: md2doc help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
