// Command cardvalidator filters a batch of payment-card records down to the
// well-formed ones and tags each with its brand.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
