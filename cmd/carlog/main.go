// Command carlog records and queries vehicle maintenance entries on a
// carLogger node, and runs the node itself.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/carlog/internal/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version
	cmd := cli.NewRootCommand()

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
