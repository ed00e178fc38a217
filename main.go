package main

import "github.com/mkastelik/pulsar/cmd"

func main() {
	cmd.Execute()
}
