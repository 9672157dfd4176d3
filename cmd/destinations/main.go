package main

import "tripfriend_bot/cmd/destinations/cmd"

func main() {
	cmd.Execute()
}
