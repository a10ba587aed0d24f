// harvest crawls product pages through a hosted crawl service and writes the
// normalized, chunked results as a JSON dataset.
package main

import "github.com/shopdata/harvest/cmd"

func main() {
	cmd.Execute()
}
