package main

import (
	"github.com/rayhan-p/storefront/cmd"
)

func main() {
	cmd.Start()
}
