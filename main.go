package main

import "moodwave/cmd"

func main() {
	cmd.Execute()
}
