package main

import "localevents/cmd"

func main() {
	cmd.Execute()
}
