package main

import "github.com/maildeck/maildeck/internal/cli"

func main() {
	cli.Execute()
}
