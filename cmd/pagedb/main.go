// Command pagedb is an interactive shell over the storage engine: create
// tables and indexes, insert/get/scan/delete rows, and look up keys in an
// index, all against a single on-disk data directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/pflag"

	"github.com/arlobytes/pagedb/internal/config"
	"github.com/arlobytes/pagedb/internal/engine"
	"github.com/arlobytes/pagedb/internal/record"
	"github.com/arlobytes/pagedb/internal/recordmgr"
)

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".pagedb_history"
	}
	return filepath.Join(home, ".pagedb_history")
}

func main() {
	var (
		dataDir    = pflag.StringP("data-dir", "d", "./data", "database data directory")
		configPath = pflag.StringP("config", "c", "", "optional YAML config file (storage, bufferpool)")
		histPath   = pflag.String("history", defaultHistoryPath(), "history file path")
		warm       = pflag.StringSlice("warm", nil, "table names to pre-open concurrently before the shell starts")
	)
	pflag.Parse()

	db := engine.NewDatabase(*dataDir)
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		db.PoolCapacity = cfg.BufferPool.Capacity
		if strategy, err := cfg.BufferPool.ParsedStrategy(); err == nil {
			db.DefaultStrategy = strategy
		}
	}
	defer db.Close()

	warmUpTables(db, *warm)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagedb> ",
		HistoryFile:     *histPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("pagedb shell — data dir %s\n", *dataDir)
	fmt.Println("type \\help for commands")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "\\q" || line == "quit" || line == "exit" {
			return
		}
		if line == "\\help" {
			printHelp()
			continue
		}
		if err := dispatch(db, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// warmUpTables pins table handles for names concurrently, bounded to at most
// four in flight at once, so a shell pointed at many tables doesn't block on
// opening them one at a time. The engine's tables/indexes themselves stay
// single-threaded once the shell's REPL loop begins.
func warmUpTables(db *engine.Database, names []string) {
	if len(names) == 0 {
		return
	}
	p := pool.New().WithMaxGoroutines(4)
	for _, name := range names {
		name := name
		p.Go(func() {
			if _, err := db.OpenTable(name); err != nil {
				fmt.Fprintf(os.Stderr, "warm %q: %v\n", name, err)
			}
		})
	}
	p.Wait()
}

func printHelp() {
	fmt.Println(`commands:
  createtable <name> <col:type[:len]>...   create a table (types: int, float, bool, string)
  opentable <name>                         open an existing table
  insert <table> <v1> <v2> ...             insert a row
  get <table> <page> <slot>                get a row by RID
  delete <table> <page> <slot>             tombstone a row by RID
  scan <table>                             print every live row
  createindex <name> <keytype> <fanout>    create an empty B+-tree index
  find <index> <key>                       look up a key
  \help                                    show this help
  \q | quit | exit                         quit`)
}

func dispatch(db *engine.Database, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "createtable":
		return cmdCreateTable(db, args)
	case "opentable":
		return cmdOpenTable(db, args)
	case "insert":
		return cmdInsert(db, args)
	case "get":
		return cmdGet(db, args)
	case "delete":
		return cmdDelete(db, args)
	case "scan":
		return cmdScan(db, args)
	case "createindex":
		return cmdCreateIndex(db, args)
	case "find":
		return cmdFind(db, args)
	default:
		return fmt.Errorf("unknown command %q (try \\help)", cmd)
	}
}

func parseColumn(spec string) (record.Column, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return record.Column{}, fmt.Errorf("bad column spec %q, want name:type[:len]", spec)
	}
	col := record.Column{Name: parts[0]}
	switch parts[1] {
	case "int":
		col.Type = record.ColInt
	case "float":
		col.Type = record.ColFloat
	case "bool":
		col.Type = record.ColBool
	case "string":
		col.Type = record.ColString
		if len(parts) < 3 {
			return record.Column{}, fmt.Errorf("string column %q needs a length", spec)
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return record.Column{}, fmt.Errorf("bad length in %q: %w", spec, err)
		}
		col.Len = n
	default:
		return record.Column{}, fmt.Errorf("unknown column type %q", parts[1])
	}
	return col, nil
}

func cmdCreateTable(db *engine.Database, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: createtable <name> <col:type[:len]>...")
	}
	cols := make([]record.Column, 0, len(args)-1)
	for _, spec := range args[1:] {
		col, err := parseColumn(spec)
		if err != nil {
			return err
		}
		cols = append(cols, col)
	}
	_, err := db.CreateTable(args[0], record.Schema{Cols: cols})
	if err != nil {
		return err
	}
	fmt.Printf("table %q created\n", args[0])
	return nil
}

func cmdOpenTable(db *engine.Database, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: opentable <name>")
	}
	tbl, err := db.OpenTable(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("table %q opened, %d tuples\n", args[0], tbl.NumTuples())
	return nil
}

func parseValue(col record.Column, raw string) (any, error) {
	switch col.Type {
	case record.ColInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err
	case record.ColFloat:
		return strconv.ParseFloat(raw, 64)
	case record.ColBool:
		return strconv.ParseBool(raw)
	case record.ColString:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown column type for %q", col.Name)
	}
}

func cmdInsert(db *engine.Database, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: insert <table> <v1> <v2> ...")
	}
	tbl, err := db.OpenTable(args[0])
	if err != nil {
		return err
	}
	schema := tbl.Schema()
	if len(args[1:]) != schema.NumCols() {
		return fmt.Errorf("table %q has %d columns, got %d values", args[0], schema.NumCols(), len(args[1:]))
	}
	values := make([]any, schema.NumCols())
	for i, col := range schema.Cols {
		v, err := parseValue(col, args[1+i])
		if err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
		values[i] = v
	}
	rid, err := tbl.Insert(values)
	if err != nil {
		return err
	}
	fmt.Printf("inserted at (%d, %d)\n", rid.Page, rid.Slot)
	return nil
}

func parseRID(pageArg, slotArg string) (record.RID, error) {
	page, err := strconv.Atoi(pageArg)
	if err != nil {
		return record.NoRID, fmt.Errorf("bad page: %w", err)
	}
	slot, err := strconv.Atoi(slotArg)
	if err != nil {
		return record.NoRID, fmt.Errorf("bad slot: %w", err)
	}
	return record.RID{Page: page, Slot: slot}, nil
}

func cmdGet(db *engine.Database, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: get <table> <page> <slot>")
	}
	tbl, err := db.OpenTable(args[0])
	if err != nil {
		return err
	}
	rid, err := parseRID(args[1], args[2])
	if err != nil {
		return err
	}
	values, err := tbl.Get(rid)
	if err != nil {
		return err
	}
	fmt.Println(values)
	return nil
}

func cmdDelete(db *engine.Database, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: delete <table> <page> <slot>")
	}
	tbl, err := db.OpenTable(args[0])
	if err != nil {
		return err
	}
	rid, err := parseRID(args[1], args[2])
	if err != nil {
		return err
	}
	if err := tbl.Delete(rid); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

func cmdScan(db *engine.Database, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scan <table>")
	}
	tbl, err := db.OpenTable(args[0])
	if err != nil {
		return err
	}
	scan, err := recordmgr.OpenScan(tbl, func(live bool, values []any) bool { return live })
	if err != nil {
		return err
	}
	defer scan.Close()

	count := 0
	for {
		rid, values, err := scan.Next()
		if err == recordmgr.ErrNoMoreTuples {
			break
		}
		if err != nil {
			return err
		}
		fmt.Printf("(%d,%d) %v\n", rid.Page, rid.Slot, values)
		count++
	}
	fmt.Printf("(%d rows)\n", count)
	return nil
}

func parseKeyKind(s string) (record.KeyKind, error) {
	switch s {
	case "int":
		return record.KeyInt, nil
	case "float":
		return record.KeyFloat, nil
	case "bool":
		return record.KeyBool, nil
	case "string":
		return record.KeyString, nil
	default:
		return 0, fmt.Errorf("unknown key type %q", s)
	}
}

func cmdCreateIndex(db *engine.Database, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: createindex <name> <keytype> <fanout>")
	}
	kind, err := parseKeyKind(args[1])
	if err != nil {
		return err
	}
	fanOut, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("bad fan-out: %w", err)
	}
	if _, err := db.CreateIndex(args[0], kind, fanOut); err != nil {
		return err
	}
	fmt.Printf("index %q created\n", args[0])
	return nil
}

func cmdFind(db *engine.Database, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: find <index> <key>")
	}
	tree, err := db.OpenIndex(args[0], record.KeyInt, 2)
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad key: %w", err)
	}
	rid, err := tree.FindKey(record.NewIntKey(n))
	if err != nil {
		return err
	}
	fmt.Printf("(%d, %d)\n", rid.Page, rid.Slot)
	return nil
}
