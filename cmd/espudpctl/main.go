// Command espudpctl inspects the framing used on the ESP SoftAP link and
// runs a driver session against a real device.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
