package main

import "github.com/jmcleod/carepoint/cmd/carepoint/cmd"

func main() {
	cmd.Execute()
}
