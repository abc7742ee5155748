package main

import "github.com/vibast-solutions/ms-go-contact/cmd"

func main() {
	cmd.Execute()
}
