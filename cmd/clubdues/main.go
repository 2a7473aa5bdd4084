// Package main is the entry point for the clubdues server and CLI.
package main

func main() {
	Execute()
}
