package main

import "github.com/canonical/gomaas/internal/cli"

func main() {
	cli.Execute()
}
