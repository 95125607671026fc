// The main package for the febiscrawler executable.
package main

import (
	"github.com/timoparlison/febiscrawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
