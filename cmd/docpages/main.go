// Command docpages converts documents to page artifacts offline and maintains
// the artifact storage root.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
