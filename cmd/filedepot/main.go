package main

import "github.com/filedepot/filedepot/cmd/filedepot/cli"

func main() {
	cli.Run()
}
