package main

import (
	"os"

	"github.com/ericfisherdev/orgsync/internal/adapter/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
