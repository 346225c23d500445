package main

import "github.com/MeKo-Tech/redactor/cmd/redactor/cmd"

func main() {
	cmd.Execute()
}
