package main

import (
	"github.com/robotalks/picuart/pkg/board"
	"github.com/robotalks/picuart/pkg/cli/sh"
)

//go-build: CGO_ENABLED=0

func init() {
	board.SetupFlags()
}

func main() {
	sh.Main()
}
