// Command appwatch-log is a tool for viewing and analyzing appwatch sync traces.
//
// Trace files are written by appwatch when it runs with the -sync-log flag.
// Each record is one CBOR-encoded event: a snapshot install, a folded change,
// a lifecycle state change or an error.
//
// Usage:
//
//	appwatch-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON or CSV format
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	appwatch-log view sync.cbor
//
//	# View only folds touching one entity
//	appwatch-log view --category fold --key default/web sync.cbor
//
//	# Export to CSV
//	appwatch-log export --format csv -o sync.csv sync.cbor
//
//	# Keep a single session
//	appwatch-log filter --mirror apps -o apps.cbor sync.cbor
//
//	# Show statistics
//	appwatch-log stats sync.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/appwatch/appwatch-go/cmd/appwatch-log/commands"
)

const usage = `appwatch-log - appwatch Sync Trace Analyzer

Usage:
  appwatch-log <command> [flags] <file.cbor>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON or CSV format
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "appwatch-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// requirePath parses args and returns the single positional trace path.
func requirePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `appwatch-log view - View trace file in human-readable format

Usage:
  appwatch-log view [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	category := fs.String("category", "", "Filter by category (snapshot, fold, state, error)")
	mirror := fs.String("mirror", "", "Filter by mirror name")
	key := fs.String("key", "", "Filter folds by entity key (name or namespace/name)")

	path := requirePath(fs, args)

	filter := commands.ViewFilter{Mirror: *mirror}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}

	if *key != "" {
		k, err := commands.ParseKeyFlag(*key)
		if err != nil {
			fatal(err)
		}
		filter.Key = &k
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `appwatch-log export - Export trace file to JSON or CSV format

Usage:
  appwatch-log export [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := requirePath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `appwatch-log filter - Filter trace file and write to new file

Usage:
  appwatch-log filter [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	session := fs.String("session", "", "Filter by session ID")
	mirror := fs.String("mirror", "", "Filter by mirror name")
	key := fs.String("key", "", "Filter folds by entity key (name or namespace/name)")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	category := fs.String("category", "", "Filter by category (snapshot, fold, state, error)")

	path := requirePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		SessionID: *session,
		Mirror:    *mirror,
		Key:       *key,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Category:  *category,
	}

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `appwatch-log stats - Show statistics about the trace file

Usage:
  appwatch-log stats <file.cbor>

`)
	}

	path := requirePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}
