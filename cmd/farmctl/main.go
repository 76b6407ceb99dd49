package main

import "github.com/tendant/farmgate/cmd/farmctl/cmd"

func main() {
	cmd.Execute()
}
