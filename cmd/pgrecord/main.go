// pgrecord is a small management tool for Postgres composite types: it
// turns a YAML schema file into CREATE TYPE / DROP TYPE statements and can
// apply them to a live database, registering the types on the way.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
