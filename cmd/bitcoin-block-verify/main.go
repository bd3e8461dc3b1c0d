package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai"
	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
	"github.com/shaorongqiang/bitcoin-block-verify/guests"
	"github.com/shaorongqiang/bitcoin-block-verify/host"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bitcoin-block-verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { printUsage(errOut) }

	var remote string
	var proveLocal bool
	var interval time.Duration
	var timeout time.Duration
	var list bool

	fs.StringVar(&remote, "remote", "", "Remote proving endpoint as '<api_url>|<api_key>' (default: $BONSAI_ENDPOINT)")
	fs.BoolVar(&proveLocal, "prove-local", false, "Seal and verify receipts when proving locally")
	fs.DurationVar(&interval, "interval", bonsai.DefaultPollInterval, "Remote session poll interval")
	fs.DurationVar(&timeout, "timeout", 0, "Overall deadline for the run (0 means none)")
	fs.BoolVar(&list, "list", false, "List registered guest programs and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if list {
		for _, e := range guests.Entries() {
			fmt.Fprintf(out, "%s  %s\n", e.ImageID, e.Name)
		}
		return 0
	}

	if fs.NArg() < 1 || fs.NArg() > 2 {
		printUsage(errOut)
		return 2
	}

	if remote == "" {
		remote = os.Getenv("BONSAI_ENDPOINT")
	}
	cfg := host.Config{ProveLocally: proveLocal, PollInterval: interval}
	if remote != "" {
		ep, err := bonsai.ParseEndpoint(remote)
		if err != nil {
			fmt.Fprintf(errOut, "%v\n", err)
			return 2
		}
		cfg.Remote = &ep
	}

	req := host.Request{Program: fs.Arg(0)}
	if fs.NArg() == 2 {
		input, err := parseInputHex(fs.Arg(1))
		if err != nil {
			fmt.Fprintf(errOut, "invalid input payload: %v\n", err)
			return 2
		}
		req.Input = input
	}

	d, err := host.New(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := d.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}

	// Hex to stdout with no trailing newline, so output can be piped as-is.
	if res.Output != nil {
		fmt.Fprintf(errOut, "verified: %s\n", res.Output)
		_, _ = fmt.Fprint(out, hex.EncodeToString(res.Journal))
		return 0
	}
	_, _ = fmt.Fprint(out, res.ImageID.String())
	return 0
}

func parseInputHex(s string) (*guestio.Input, error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, err
	}
	return guestio.DecodeInput(buf)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "bitcoin-block-verify: prove Bitcoin header chains in a zkVM")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  bitcoin-block-verify [flags] <program> [inputHex]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  <program>   guest name (case-insensitive) or full 64-hex-digit image id")
	fmt.Fprintln(w, "  [inputHex]  hex of the packaged input: 8-byte LE height || 80-byte headers;")
	fmt.Fprintln(w, "              omit it to print the resolved program's image id instead")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -remote '<api_url>|<api_key>'   prove on a remote service ($BONSAI_ENDPOINT)")
	fmt.Fprintln(w, "  -prove-local                    seal and verify receipts when proving locally")
	fmt.Fprintln(w, "  -interval <dur>                 remote session poll interval (default 15s)")
	fmt.Fprintln(w, "  -timeout <dur>                  overall deadline for the run")
	fmt.Fprintln(w, "  -list                           list registered guest programs and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - without -remote and without BONSAI_ENDPOINT, guests run in-process")
	fmt.Fprintln(w, "  - success writes hex to stdout with no trailing newline")
}
