package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/pvmlang/pvm/lang/machine"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed error
	for _, f := range args {
		res, err := compileFile(stdio, f)
		if err != nil {
			failed = err
			continue
		}

		th := machine.NewThread(stdio.Stdout, stdio.Stderr)
		result := th.Run(ctx, res.Chunk)
		if result.Trap != nil {
			failed = printError(stdio, result.Trap)
			continue
		}
		if result.ExitCode != 0 {
			fmt.Fprintf(stdio.Stderr, "%s: exit code %d\n", f, result.ExitCode)
			failed = fmt.Errorf("%s: exit code %d", f, result.ExitCode)
		}
	}
	return failed
}
