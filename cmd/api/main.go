// Package main is the entry point for the personal-metrics-service API.
package main

func main() {
	Execute()
}
