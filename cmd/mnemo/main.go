package main

import "mnemo/cmd/mnemo/cli"

func main() {
	cli.Execute()
}
