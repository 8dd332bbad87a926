package main

import (
	"github.com/foomo/funnelstore/cmd"
)

func main() {
	cmd.Execute()
}
