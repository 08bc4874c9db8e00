package main

import "github.com/morler/codeassist/cmd"

func main() {
	cmd.Execute()
}
