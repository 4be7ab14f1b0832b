package main

import "github.com/timvw/term-courier/cmd"

func main() {
	cmd.Execute()
}
