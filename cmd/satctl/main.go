// Command satctl reads and changes Satellite entities from the command line.
//
//	satctl --url https://sat.example.com --user admin --password changeme \
//	    create Organization name="Default Organization"
//	satctl --profile lab search Product --search 'name ~ RHEL'
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
