package main

import "github.com/forPelevin/voxdub/internal/cli"

func main() {
	cli.Main()
}
