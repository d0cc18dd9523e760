package main

import "github.com/phonginreallife/leadtriage/internal/cli"

func main() {
	cli.Execute()
}
