// Command md2doc converts Markdown to PDF, Word and PNG, previews it in the
// terminal and serves the md2doc static site.
package main

import (
	"context"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := notifyContext(context.Background())
	code := run(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}
