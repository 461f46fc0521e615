package main

import (
	"github.com/montrose/hnwi-gateway/cmd/cli"
)

// main is the entry point for the gateway-admin command-line tool.
func main() {
	cli.Execute()
}
