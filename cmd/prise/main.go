// Command prise is the scriptable terminal multiplexer server's CLI.
package main

import "os"

func main() {
	os.Exit(Execute())
}
