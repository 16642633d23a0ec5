package main

import "github.com/nivaro/postpilot/cmd"

func main() {
	cmd.Execute()
}
