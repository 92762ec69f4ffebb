package main

import (
	"github.com/dwarvesf/chain-scanner/internal/server"
)

func main() {
	server.Init()
}
