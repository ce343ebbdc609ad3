// The main package for the nominations executable.
package main

import (
	"github.com/JakeFAU/nomination-archive-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
