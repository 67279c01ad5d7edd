// Command locate looks up the current city from the command line.
package main

var Version = "development"

func main() {
	Execute(Version)
}
