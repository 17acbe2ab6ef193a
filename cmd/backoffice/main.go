// Command backoffice manages the back office records and documents.
package main

import "github.com/mesh-intelligence/backoffice/internal/cli"

func main() {
	cli.Execute()
}
