package main

import "github.com/faizanamer123/openassign-call/cmd"

func main() {
	cmd.Execute()
}
