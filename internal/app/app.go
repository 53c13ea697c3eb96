// Package app implements the fightdesk CLI. Each command is a thin shell
// around one service package so behavior stays testable outside the CLI.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "import":
		return runImport(args[1:])
	case "pending":
		return runPending(args[1:])
	case "discover":
		return runDiscover(args[1:])
	case "approve":
		return runApprove(args[1:])
	case "reject":
		return runReject(args[1:])
	case "duplicate":
		return runDuplicate(args[1:])
	case "promote":
		return runPromote(args[1:])
	case "reconcile":
		return runReconcile(args[1:])
	case "audit":
		return runAudit(args[1:])
	case "report":
		return runReport(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "fightdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  fightdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  import     Resolve fighter mention JSON files against the roster")
	fmt.Fprintln(os.Stderr, "  pending    List staged fighters awaiting review")
	fmt.Fprintln(os.Stderr, "  discover   Stage one fighter mention for review")
	fmt.Fprintln(os.Stderr, "  approve    Approve a pending fighter")
	fmt.Fprintln(os.Stderr, "  reject     Reject a pending fighter")
	fmt.Fprintln(os.Stderr, "  duplicate  Mark a pending fighter as a duplicate of a canonical one")
	fmt.Fprintln(os.Stderr, "  promote    Create a canonical fighter from an approved pending record")
	fmt.Fprintln(os.Stderr, "  reconcile  Link unlinked fight history records to canonical fights")
	fmt.Fprintln(os.Stderr, "  audit      Validate the linked fight network for inconsistencies")
	fmt.Fprintln(os.Stderr, "  report     Emit the data quality report artifact")
	fmt.Fprintln(os.Stderr, "  serve      Start the review API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"fightdesk <command> -h\" for command-specific flags.")
}
