package main

import "github.com/crossvenue/prediction-arb/cmd"

func main() {
	cmd.Execute()
}
