package main

import (
	"os"

	"github.com/Mohsinsiddi/w3token/cmd"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(tkerr.ExitCode(err))
	}
}
