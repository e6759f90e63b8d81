package main

import "github.com/genomekit/geoflow-cli/cmd"

func main() {
	cmd.Execute()
}
