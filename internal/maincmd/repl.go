package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/pvmlang/pvm/lang/compiler"
	"github.com/pvmlang/pvm/lang/lexer"
	"github.com/pvmlang/pvm/lang/machine"
)

// Repl runs a headless-block REPL session: one long-lived compiler and VM
// thread. Each line is compiled onto the end of the session's one chunk,
// against the session's running symbol table, and executed immediately
// from that line's first instruction (SPEC_FULL.md §6).
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunRepl(ctx, stdio)
}

func RunRepl(ctx context.Context, stdio mainer.Stdio) error {
	cp := compiler.New("<repl>", nil)
	th := machine.NewThread(stdio.Stdout, stdio.Stderr)

	scan := bufio.NewScanner(stdio.Stdin)
	fmt.Fprint(stdio.Stdout, "> ")
	for scan.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scan.Text()
		res := compiler.CompileREPLChunk(cp, []byte(line))
		if !res.Success {
			lexer.PrintError(stdio.Stderr, res.Errors)
			fmt.Fprint(stdio.Stdout, "> ")
			continue
		}
		if result := th.Run(ctx, res.Chunk); result.Trap != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", result.Trap)
		}
		fmt.Fprint(stdio.Stdout, "> ")
	}
	return scan.Err()
}
