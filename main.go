package main

import "resumelift/cmd"

func main() {
	cmd.Execute()
}
