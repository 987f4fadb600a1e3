package main

import "github.com/coursemix/coursesync/internal/cli"

func main() {
	cli.Execute()
}
