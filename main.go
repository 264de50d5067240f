package main

import "github.com/Rorical/c60chat/cmd"

func main() {
	cmd.Execute()
}
