package main

import "github.com/ValentinKolb/kvkit/cmd"

func main() {
	cmd.Execute()
}
