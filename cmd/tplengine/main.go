package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-tplengine/internal/prompt"
)

func main() {
	cmd := newRootCommand(prompt.NewSurveyDriver())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
