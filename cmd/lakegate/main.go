// Command lakegate is the gateway CLI.
package main

import (
	"os"

	"lakegate/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
