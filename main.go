package main

import "github.com/killallgit/chatkit/cmd"

func main() {
	cmd.Execute()
}
