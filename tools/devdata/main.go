package main

import (
	"os"

	"github.com/wesm/mailaddrs/tools/devdata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
