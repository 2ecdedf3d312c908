package main

import "github.com/smuchara/pollstack/cmd"

func main() {
	cmd.Execute()
}
