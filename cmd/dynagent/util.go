package main

import (
	"os"
	"strings"
)

// hasFlag checks if a flag exists in os.Args.
func hasFlag(flag string) bool {
	for _, a := range os.Args[2:] {
		if a == flag {
			return true
		}
	}
	return false
}

// getFlagValue returns the value after a flag (--flag value or --flag=value).
func getFlagValue(flag string) string {
	args := os.Args[2:]
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, flag+"=") {
			return strings.TrimPrefix(a, flag+"=")
		}
	}
	return ""
}
