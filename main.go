package main

import "github.com/sinekal/Taxiye-EIMS-Integration/cmd"

func main() {
	cmd.Execute()
}
