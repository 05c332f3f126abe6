package main

import "strings"

// commandLine renders argv the way it is recorded in processing history:
// every argument as invoked, joined by single spaces.
func commandLine(argv []string) string {
	return strings.Join(argv, " ")
}
