package main

import "sheetsync/api/internal/cli"

func main() {
	cli.Execute()
}
