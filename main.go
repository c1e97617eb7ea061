// Package main provides the urlcanon CLI entrypoint.
package main

import "github.com/lukemcguire/urlcanon/cmd"

func main() {
	cmd.Execute()
}
