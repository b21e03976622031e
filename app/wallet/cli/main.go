package main

import "github.com/ArthurBonsu/tinc-blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
