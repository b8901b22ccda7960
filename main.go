package main

import "github.com/kiesman99/rasterpipe/cmd"

func main() {
	cmd.Execute()
}
