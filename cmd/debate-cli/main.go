// Command debate-cli runs and watches discussions from the terminal.
package main

func main() {
	Execute()
}
