package main

import (
	"fmt"
	"os"

	"github.com/tabq-dev/tabq/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tabq:", err)
		os.Exit(1)
	}
}
