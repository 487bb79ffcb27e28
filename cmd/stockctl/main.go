package main

import (
	"fmt"
	"os"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
