package main

import (
	"github.com/tractionhq/traction/frontend/cli/cmd"
)

func main() {
	cmd.Execute()
}
