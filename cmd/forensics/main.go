package main

import (
	"github.com/onflow/hotstuff-forensics/cmd/forensics/cmd"
)

func main() {
	cmd.Execute()
}
