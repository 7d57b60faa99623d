package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = func(a ...any) { fmt.Println(a...) }

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Init(ctx context.Context) error
	Login(ctx context.Context) error
	Rotate(ctx context.Context) error
	Record(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Conflicts(ctx context.Context) error
	Resolve(ctx context.Context) error
	Devices(ctx context.Context) error
	Deactivate(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command and dispatches
// to methods on 'a'. The loop exits on scanner EOF or when the user types
// "exit" or "quit". Errors returned by command handlers are ignored here;
// handlers report their own failures. This keeps the loop resilient and
// focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("clinisync %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: record, (l)ist, show, delete, push, pull, conflicts, resolve, devices, deactivate, export, import, rotate, logout, exit")
			} else {
				printlnFn("Available commands: init, login, exit")
			}

		case "init":
			_ = a.Init(ctx)

		case "login":
			_ = a.Login(ctx)

		case "rotate":
			_ = a.Rotate(ctx)

		case "record":
			_ = a.Record(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			_ = a.Show(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "push":
			_ = a.Push(ctx)

		case "pull":
			_ = a.Pull(ctx)

		case "conflicts":
			_ = a.Conflicts(ctx)

		case "resolve":
			_ = a.Resolve(ctx)

		case "devices":
			_ = a.Devices(ctx)

		case "deactivate":
			_ = a.Deactivate(ctx)

		case "export":
			_ = a.Export(ctx)

		case "import":
			_ = a.Import(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
