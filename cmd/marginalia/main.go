// Command marginalia manages typed annotations on scientific papers.
package main

import "github.com/inkline-labs/marginalia/internal/cli"

func main() {
	cli.Execute()
}
