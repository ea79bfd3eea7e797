package main

import "github.com/fretehub/credit-ledger/internal/cli"

func main() {
	cli.Execute()
}
