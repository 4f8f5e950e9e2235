package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prepdeck/backend/internal/config"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := cfg.DatabasePath + ".bak"
	dst := cfg.DatabasePath

	srcFile, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Database restore completed.")
}
