// glossctl inspects a glossary term directory offline: it matches text
// against it, validates the documents, and lists the claimed surfaces.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/cmd/glossctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
