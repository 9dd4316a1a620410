package main

import "github.com/nanunh/genstack/cmd"

func main() {
	cmd.Execute()
}
