package main

import "github.com/theirongolddev/runledger/cmd"

func main() {
	cmd.Execute()
}
