// Package main is the entry of the ocsim command line tool.
package main

import "github.com/sarchlab/ocsim/ocsim/cmd"

func main() {
	cmd.Execute()
}
