package main

import (
	"github.com/postpilot-io/postpilot/cmd"
)

func main() {
	cmd.Execute()
}
