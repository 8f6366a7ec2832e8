package main

import "github.com/jywlabs/demogen/cmd"

func main() {
	cmd.Execute()
}
