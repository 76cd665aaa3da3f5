// The main package for the career-crawler executable.
package main

import (
	"github.com/JakeFAU/career-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
