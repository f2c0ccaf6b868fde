package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/pvmlang/pvm/lang/lexer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	var failed error
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			failed = printError(stdio, err)
			continue
		}
		toks, errs := lexer.Scan(f, src)
		for _, tv := range toks {
			fmt.Fprintf(stdio.Stdout, "%s: %s", tv.Pos, tv.Token)
			if tv.Value.Str != "" {
				fmt.Fprintf(stdio.Stdout, " %q", tv.Value.Str)
			}
			fmt.Fprintln(stdio.Stdout)
		}
		if len(errs) > 0 {
			lexer.PrintError(stdio.Stderr, errs)
			failed = errs
		}
	}
	return failed
}
