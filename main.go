package main

import "github.com/strrl/coach-dashboard/cmd/coach-dashboard/commands"

func main() {
	commands.Execute()
}
