package main

import "diceboard/internal/cli"

func main() {
	cli.Execute()
}
