package main

import "github.com/iksnae/corebos/cmd"

func main() {
	cmd.Execute()
}
