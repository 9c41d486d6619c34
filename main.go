package main

import "github.com/gitscout/gitscout/cmd"

func main() {
	cmd.Execute()
}
