package main

import (
	"context"
	"os"

	"wgharvest/pkg/ui"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
