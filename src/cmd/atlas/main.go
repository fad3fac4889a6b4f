// Command atlas prints the schema of every persisted model as Postgres DDL.
// It is referenced from atlas.hcl as an external_schema program.
package main

import (
	"aworld/src/db"
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(db.Models()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}
	io.WriteString(os.Stdout, stmts)
}
