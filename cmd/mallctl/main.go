// Command mallctl manages storefront carts, wishlists and orders.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/mallstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, "mallctl:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
