package main

import "medikacom/kgrag/cmd"

func main() {
	cmd.Execute()
}
