// Command schemagen writes the JSON schema of the reap configuration.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/schema"
)

const modulePath = "github.com/macropower/reap"

var (
	rootDir = flag.String("root", ".", "Module root directory")
	outFile = flag.String("o", "schema.json", "Output file for the generated schema")
)

func main() {
	flag.Parse()

	out, err := filepath.Abs(*outFile)
	if err != nil {
		log.Fatalf("resolve output path: %v", err)
	}

	// Comment lookup is relative to the module root.
	err = os.Chdir(*rootDir)
	if err != nil {
		log.Fatalf("change to module root: %v", err)
	}

	gen := schema.NewGenerator(configs.New(),
		modulePath,
		"api/v1beta1",
		"api/v1beta1/configs",
	)

	jsData, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(out, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
