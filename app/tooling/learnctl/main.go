// This program drives the LearnBlock contract from a terminal.
package main

import "github.com/learnblock/learnblock/app/tooling/learnctl/cmd"

func main() {
	cmd.Execute()
}
