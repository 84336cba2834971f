// Command cocokit repairs, converts and merges COCO annotation datasets.
package main

import (
	"os"

	"github.com/kilupskalvis/cocokit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
