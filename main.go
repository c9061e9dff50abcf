package main

import "github.com/guardianbridge/gbridge/cmd"

func main() {
	cmd.Execute()
}
