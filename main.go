package main

import "github.com/rsaito/github-compare/cmd"

func main() {
	cmd.Execute()
}
