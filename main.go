package main

import "github.com/itsmostafa/phunkie/cmd"

func main() {
	cmd.Execute()
}
