package main

import "github.com/dynasticorpheus/gigasetelements-ha/cmd"

func main() {
	cmd.Execute()
}
