package main

import (
	"fmt"
	"os"

	"fjacquet/spendlog/cmd/backend"
	"fjacquet/spendlog/cmd/category"
	"fjacquet/spendlog/cmd/process"
	"fjacquet/spendlog/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(process.Cmd)
	root.Cmd.AddCommand(backend.Cmd)
	root.Cmd.AddCommand(category.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
