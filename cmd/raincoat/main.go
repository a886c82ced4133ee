package main

import "github.com/i474232898/raincoat/internal/cmd"

func main() {
	cmd.Execute()
}
