package main

import "github.com/mselser95/polymarket-settle/cmd"

func main() {
	cmd.Execute()
}
