package main

import "github.com/vanpelt/rpsh/internal/cmd"

func main() {
	cmd.Execute()
}
