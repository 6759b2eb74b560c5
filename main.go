package main

import "github.com/fakeyudi/codewalk/cmd"

func main() {
	cmd.Execute()
}
