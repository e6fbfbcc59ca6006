//go:build !tinygo

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ember/kconfig"
)

// emberconf renders the kernel configuration table the way the original
// build system renders its generated header: one #define per defined
// option, nothing at all for undefined ones.

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var outPath string
	var format string
	var sets multiFlag
	var undefs multiFlag
	flag.StringVar(&outPath, "out", "autoconf.h", "Output path (- for stdout).")
	flag.StringVar(&format, "format", "header", "Output format: header or env.")
	flag.Var(&sets, "set", "Override an option, SYMBOL=value (repeatable).")
	flag.Var(&undefs, "undef", "Remove an option (repeatable).")
	flag.Parse()

	if err := run(outPath, format, sets, undefs); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(outPath, format string, sets, undefs []string) error {
	tbl := kconfig.Default()

	for _, kv := range sets {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("bad -set %q: want SYMBOL=value", kv)
		}
		n, err := strconv.ParseInt(val, 0, 64)
		if err != nil {
			return fmt.Errorf("bad -set %q: %w", kv, err)
		}
		tbl.Set(option(name), n)
	}
	for _, name := range undefs {
		tbl.Undefine(option(name))
	}

	if err := tbl.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case "header":
		buf.WriteString("/* Generated by emberconf. Do not edit. */\n\n")
		for _, opt := range tbl.Options() {
			v, _ := tbl.Value(opt)
			fmt.Fprintf(&buf, "#define %s %d\n", opt.Symbol(), v)
		}
	case "env":
		for _, opt := range tbl.Options() {
			v, _ := tbl.Value(opt)
			fmt.Fprintf(&buf, "%s=%d\n", opt.Symbol(), v)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if outPath == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", outPath, err)
	}
	return nil
}

// option accepts symbols with or without the CONFIG_ prefix.
func option(name string) kconfig.Option {
	return kconfig.Option(strings.TrimPrefix(name, "CONFIG_"))
}
