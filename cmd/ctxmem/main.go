package main

import (
	"fmt"
	"os"

	"github.com/cadre-oss/ctxmem/internal/cli"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := ctxerrors.Suggestion(err); hint != "" {
			fmt.Fprintln(os.Stderr, "  →", hint)
		}
		os.Exit(1)
	}
}
