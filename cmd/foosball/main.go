// foosball serves the league API and administers its data.
//
//	foosball serve
//	foosball user add admin --password secret --prop role=admin
//	foosball series list
//
// Configuration comes from foosball.yaml (searched upwards from the working
// directory), then .env, then FOOSBALL_* environment variables.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
