package main

import (
	"os"

	"github.com/wesm/mailaddrs/cmd/mailaddrs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
