package main

import "github.com/vietddude/streamguard/internal/cli"

func main() {
	cli.Execute()
}
