// Command flextable runs the dynamic table engine: a schema/record store
// with typed validation, optimistic concurrency, and interchangeable
// storage backends, served over HTTP.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}
