package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/pvmlang/pvm/lang/compiler"
	"github.com/pvmlang/pvm/lang/lexer"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed error
	for _, f := range args {
		if _, err := compileFile(stdio, f); err != nil {
			failed = err
		}
	}
	return failed
}

func compileFile(stdio mainer.Stdio, path string) (compiler.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return compiler.Result{}, printError(stdio, err)
	}
	res := compiler.Compile(path, src)
	if !res.Success {
		lexer.PrintError(stdio.Stderr, res.Errors)
		return res, res.Errors
	}
	fmt.Fprintf(stdio.Stdout, "%s: ok\n", path)
	return res, nil
}
