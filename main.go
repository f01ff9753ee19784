package main

import "github.com/wentf9/ufwctl/cmd"

func main() {
	cmd.Execute()
}
