// slotmap is an interactive CLI for inspecting and mutating slotmap regions.
//
// Usage:
//
//	slotmap [flags] <region-file>
//
// Flags:
//
//	-s, --slots     Slot capacity when creating a new region file
//	-c, --config    Config file path (hujson)
//
// Commands (in REPL):
//
//	put <key> <value...>   Insert or replace an entry
//	get <key>              Retrieve an entry by key
//	del <key>              Delete an entry
//	keys                   List stored keys (truncated views for long keys)
//	scan                   List all entries with values
//	info                   Show entries/used/capacity
//	clear                  Remove all entries
//	snapshot <path>        Write an atomic snapshot of the region
//	restore <path>         Overwrite the region from a snapshot
//	help                   Show this help
//	exit / quit / q        Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/calvinalkan/slotmap/pkg/region"
	"github.com/calvinalkan/slotmap/pkg/slotmap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("slotmap", pflag.ContinueOnError)
	slots := flags.IntP("slots", "s", 0, "slot capacity when creating a new region file")
	configPath := flags.StringP("config", "c", "", "config file path")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: slotmap [flags] <region-file>")
		flags.PrintDefaults()

		return errors.New("exactly one region file argument required")
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	path := cfg.resolveRegionPath(flags.Arg(0))

	capacity := *slots
	if capacity == 0 {
		capacity = cfg.DefaultSlots
	}

	info, statErr := os.Stat(path)
	creating := statErr != nil || info.Size() == 0

	r, err := region.Map(path, slotmap.RequiredSize(capacity))
	if err != nil {
		return err
	}
	defer r.Close()

	var tbl *slotmap.Table

	if creating {
		tbl, err = slotmap.Create(r.Bytes())
		fmt.Printf("created %s (%d slots)\n", path, capacity)
	} else {
		tbl, err = slotmap.Attach(r.Bytes())
	}

	if err != nil {
		return err
	}

	return repl(tbl, r, path)
}

func repl(tbl *slotmap.Table, r *region.Region, path string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	fmt.Printf("slotmap REPL on %s - 'help' for commands\n", path)

	for {
		input, err := line.Prompt("slotmap> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		done, err := dispatch(tbl, r, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}

		if done {
			return nil
		}
	}
}

//nolint:cyclop // flat command dispatch
func dispatch(tbl *slotmap.Table, r *region.Region, input string) (done bool, err error) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true, nil

	case "help":
		printHelp()

	case "put":
		if len(args) < 2 {
			return false, errors.New("usage: put <key> <value...>")
		}

		value := strings.Join(args[1:], " ")
		if err := tbl.Put([]byte(args[0]), []byte(value)); err != nil {
			return false, err
		}

		fmt.Println("ok")

	case "get":
		if len(args) != 1 {
			return false, errors.New("usage: get <key>")
		}

		value, err := tbl.Get([]byte(args[0]))
		if err != nil {
			return false, err
		}

		fmt.Printf("%s\n", value)

	case "del":
		if len(args) != 1 {
			return false, errors.New("usage: del <key>")
		}

		if err := tbl.Remove([]byte(args[0])); err != nil {
			return false, err
		}

		fmt.Println("ok")

	case "keys", "scan":
		withValues := cmd == "scan"
		if err := listEntries(tbl, withValues); err != nil {
			return false, err
		}

	case "info":
		entries, used, capacity := tbl.Size()
		fmt.Printf("entries=%d used=%d capacity=%d region=%d bytes\n",
			entries, used, capacity, r.Len())

	case "clear":
		tbl.Clear()
		fmt.Println("ok")

	case "snapshot":
		if len(args) != 1 {
			return false, errors.New("usage: snapshot <path>")
		}

		if err := region.Snapshot(args[0], r.Bytes()); err != nil {
			return false, err
		}

		fmt.Printf("snapshot written to %s\n", args[0])

	case "restore":
		if len(args) != 1 {
			return false, errors.New("usage: restore <path>")
		}

		if err := restoreInto(r, args[0]); err != nil {
			return false, err
		}

		fmt.Println("restored")

	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}

	return false, nil
}

func listEntries(tbl *slotmap.Table, withValues bool) error {
	cursor := 0
	count := 0

	for {
		entry, err := tbl.Next(&cursor)
		if errors.Is(err, slotmap.ErrNotFound) {
			break
		}

		if err != nil {
			return err
		}

		count++

		if withValues {
			fmt.Printf("%s = %s\n", entry.Key, entry.Value)
		} else {
			fmt.Printf("%s\n", entry.Key)
		}
	}

	fmt.Printf("(%d entries)\n", count)

	return nil
}

// restoreInto copies a snapshot over the live region in place, so other
// mappings of the same file observe the restored state. The open table
// handle stays valid: it reads the region bytes directly.
func restoreInto(r *region.Region, path string) error {
	restored, err := region.Restore(path)
	if err != nil {
		return err
	}

	if len(restored) != r.Len() {
		return fmt.Errorf("snapshot is %d bytes but region is %d", len(restored), r.Len())
	}

	copy(r.Bytes(), restored)

	// Re-validate the restored header through a fresh attach.
	_, err = slotmap.Attach(r.Bytes())

	return err
}

func printHelp() {
	fmt.Print(`commands:
  put <key> <value...>   insert or replace an entry
  get <key>              retrieve an entry by key
  del <key>              delete an entry
  keys                   list stored keys
  scan                   list all entries with values
  info                   show entries/used/capacity
  clear                  remove all entries
  snapshot <path>        write an atomic snapshot of the region
  restore <path>         overwrite the region from a snapshot
  exit                   quit
`)
}
