package main

import "github.com/Couziii/Test-Charity-Event-Manager/cmd/server/cmd"

func main() {
	cmd.Execute()
}
