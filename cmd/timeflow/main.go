package main

import (
	"fmt"
	"os"

	"github.com/petrijr/timeflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "timeflow:", err)
		os.Exit(1)
	}
}
