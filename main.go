package main

import "github.com/jibecompany/worklog/cmd"

func main() {
	cmd.Execute()
}
