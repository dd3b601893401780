package main

import (
	"fmt"
	"os"
	"os/exec"
)

// main.go at root is a convenience wrapper for running cmd/yujo
// in production, use the binary built from cmd/yujo directly
func main() {
	args := append([]string{"run", "./cmd/yujo"}, os.Args[1:]...)
	if len(os.Args) == 1 {
		args = append(args, "serve")
	}
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
