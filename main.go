package main

import "apptrack/cmd"

func main() {
	cmd.Execute()
}
