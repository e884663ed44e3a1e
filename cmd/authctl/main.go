package main

import "github.com/NordCoder/bazaar/cmd/authctl/cmd"

func main() {
	cmd.Execute()
}
