package main

import "license-agent/cmd"

func main() {
	cmd.Execute()
}
