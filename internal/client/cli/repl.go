package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	KeyGenerate(ctx context.Context) error
	KeyExport(ctx context.Context) error
	KeyRegister(ctx context.Context) error
	KeyStatus(ctx context.Context) error
	Elections(ctx context.Context) error
	ShowElection(ctx context.Context) error
	Vote(ctx context.Context) error
	Receipt(ctx context.Context) error
	TokenStatus(ctx context.Context) error
	Results(ctx context.Context) error
	Audit(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a read-eval-print loop for the voting CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands before login: help, register, login, exit.
// After login: keygen, keyexport, keyregister, keystatus, elections, show,
// vote, receipt, token, results, logout; "audit" additionally requires an
// admin account.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("bv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: keygen, keyexport, keyregister, keystatus, elections, show, vote, receipt, token, results, logout, exit")
				if a.isAdmin() {
					printlnFn("Admin commands: audit")
				}
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "keygen":
			_ = a.KeyGenerate(ctx)

		case "keyexport":
			_ = a.KeyExport(ctx)

		case "keyregister":
			_ = a.KeyRegister(ctx)

		case "keystatus":
			_ = a.KeyStatus(ctx)

		case "e", "elections":
			_ = a.Elections(ctx)

		case "show":
			_ = a.ShowElection(ctx)

		case "vote":
			_ = a.Vote(ctx)

		case "receipt":
			_ = a.Receipt(ctx)

		case "token":
			_ = a.TokenStatus(ctx)

		case "results":
			_ = a.Results(ctx)

		case "audit":
			_ = a.Audit(ctx)

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
