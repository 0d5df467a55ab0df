package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the minimal command surface the REPL needs. App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Usage(ctx context.Context, args []string) error
	Summary(ctx context.Context, args []string) error
	Gen(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	ClearCache(ctx context.Context) error
	ClearData(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command and
// dispatches to a. The loop exits on scanner EOF or "exit"/"quit".
// Handlers report their own errors; the loop stays up regardless.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("uv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn("Available commands: whoami, usage, summary, gen, sync, clearcache, cleardata, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.Whoami(ctx)
		case "u", "usage":
			_ = a.Usage(ctx, args)
		case "s", "summary":
			_ = a.Summary(ctx, args)
		case "gen":
			_ = a.Gen(ctx, args)
		case "sync":
			_ = a.Sync(ctx)
		case "clearcache":
			_ = a.ClearCache(ctx)
		case "cleardata":
			_ = a.ClearData(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
