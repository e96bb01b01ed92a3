package main

import "github.com/Qudix/mob/cmd"

func main() {
	cmd.Execute()
}
