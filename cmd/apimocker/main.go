// apimocker - mock REST API server generated from OpenAPI documents.
package main

import "github.com/apimocker/apimocker/pkg/cli"

func main() {
	cli.Execute()
}
