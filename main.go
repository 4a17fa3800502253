package main

import (
	"embed"
	"os"

	"github.com/msalah0e/cloudcanvas/cmd"
)

//go:embed schemas/*.toml
var schemaFS embed.FS

func main() {
	cmd.SetSchemaFS(schemaFS)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
