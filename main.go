package main

import (
	"github.com/masambo/jukebox-joy-scan/cmd"
)

func main() {
	cmd.Execute()
}
