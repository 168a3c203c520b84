package main

import "github.com/spacedunk/spacedunk/internal/cli"

func main() {
	cli.Execute()
}
