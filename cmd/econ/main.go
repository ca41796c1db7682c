// Command econ evaluates Econ files: a JSON superset with expressions,
// references, macros, higher-order operators, and value constraints.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/fxamacker/cbor/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"

	"github.com/dollerama/econ-go/econ"
	"github.com/dollerama/econ-go/value"
)

const (
	exitUsage = 1
	exitIO    = 2
	exitEval  = 3
)

var debug bool

func evalOptions() []econ.Option {
	if !debug {
		return nil
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return []econ.Option{econ.WithDebug(logger)}
}

func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

func evalFile(path string) value.Value {
	v, err := econ.ParseFile(path, evalOptions()...)
	if err != nil {
		// read failures surface as *fs.PathError; lex and parse errors do not
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			fail(exitIO, err)
		}
		fail(exitEval, err)
	}
	return v
}

func writeOut(out, text string) {
	if out == "" {
		fmt.Println(text)
		return
	}
	if err := os.WriteFile(out, []byte(text+"\n"), 0o644); err != nil {
		fail(exitIO, err)
	}
}

func main() {
	var (
		asJSON bool
		out    string
	)

	rootCmd := &cobra.Command{
		Use:           "econ <file>",
		Short:         "Evaluate an Econ file and print the result",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			v := evalFile(args[0])
			if asJSON {
				writeOut(out, value.PrintJSON(v))
			} else {
				writeOut(out, value.Print(v))
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log the token stream and timing to stderr")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print the strict JSON profile (null for nil)")
	rootCmd.Flags().StringVar(&out, "out", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(getCmd(), watchCmd(), validateCmd(), exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fail(exitUsage, err)
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> <dotted.path>",
		Short: "Evaluate a file and print the value at a dotted path",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			v := evalFile(args[0])
			cur := v
			for _, seg := range strings.Split(args[1], ".") {
				switch c := cur.(type) {
				case *value.Object:
					next, ok := c.Get(seg)
					if !ok {
						msg := fmt.Errorf("key %q not found", seg)
						if hint := closestKey(seg, c.Keys()); hint != "" {
							msg = fmt.Errorf("key %q not found (did you mean %q?)", seg, hint)
						}
						fail(exitEval, msg)
					}
					cur = next
				case value.Arr:
					idx, err := strconv.Atoi(seg)
					if err != nil || idx < 0 || idx >= len(c) {
						fail(exitEval, fmt.Errorf("index %q out of range", seg))
					}
					cur = c[idx]
				default:
					fail(exitEval, fmt.Errorf("cannot descend into %s with %q", cur.Kind(), seg))
				}
			}
			fmt.Println(value.Print(cur))
		},
	}
}

// closestKey fuzzy-ranks the existing keys against the missed segment.
func closestKey(target string, candidates []string) string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-evaluate a file every time it changes",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := args[0]

			evalOnce := func() {
				v, err := econ.ParseFile(path, evalOptions()...)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return
				}
				fmt.Println(value.Print(v))
			}
			evalOnce()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				fail(exitIO, err)
			}
			defer watcher.Close()

			// watch the directory; editors replace files on save
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				fail(exitIO, err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					if filepath.Clean(ev.Name) != filepath.Clean(path) {
						continue
					}
					if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
						evalOnce()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					fmt.Fprintln(os.Stderr, err)
				case <-sig:
					return
				}
			}
		},
	}
}

func validateCmd() *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "validate <file> --schema <schema.json>",
		Short: "Check the evaluated tree against a JSON Schema",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v := evalFile(args[0])

			schema, err := jsonschema.Compile(schemaPath)
			if err != nil {
				fail(exitIO, err)
			}

			var doc any
			if err := json.Unmarshal([]byte(value.PrintJSON(v)), &doc); err != nil {
				fail(exitEval, err)
			}
			if err := schema.Validate(doc); err != nil {
				fail(exitEval, err)
			}
			fmt.Println("ok")
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the JSON Schema document")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <file> --format json|cbor",
		Short: "Export the evaluated tree in a machine format",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v := evalFile(args[0])

			var data []byte
			switch format {
			case "json":
				data = []byte(value.PrintJSON(v))
			case "cbor":
				encoded, err := cbor.Marshal(value.ToGo(v))
				if err != nil {
					fail(exitEval, err)
				}
				data = encoded
			default:
				fail(exitUsage, fmt.Errorf("unsupported format %q", format))
			}

			if out == "" {
				if _, err := os.Stdout.Write(data); err != nil {
					fail(exitIO, err)
				}
				return
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				fail(exitIO, err)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or cbor")
	cmd.Flags().StringVar(&out, "out", "", "write output to a file instead of stdout")
	return cmd
}
