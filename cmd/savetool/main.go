package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"idle_tapper/internal/economy"
	"idle_tapper/internal/save"
	"idle_tapper/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "export":
		err = cmdExport(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "reset":
		err = cmdReset(os.Args[2:])
	case "show":
		err = cmdShow(os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, os.Args[1]+" failed:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: savetool <export|import|reset|show> -player ID [flags]

  export  [-out file]          write the save as JSON (stdout by default)
  import  -in file             replace the save, clamping invalid values
  reset   [-serials]           wipe the save; -serials also resets card serials
  show                         print a one-line summary

The store is picked like the server does: REDIS_ADDR, then -data-dir.
The bolt file under -data-dir is locked while the server runs; stop it first.`)
}

type target struct {
	kv       storage.KV
	playerID int64
	serials  *economy.SerialCounter
}

func (t *target) store(policy economy.SerialPolicy) *save.Store {
	return save.NewStore(t.kv, t.playerID, t.serials, save.Options{SerialPolicy: policy})
}

// open parses the shared flags and opens the local store.
func open(fs *flag.FlagSet, args []string) (*target, error) {
	dataDir := fs.String("data-dir", envOr("DATA_DIR", "./data"), "local store directory")
	player := fs.Int64("player", 0, "player id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *player <= 0 {
		return nil, fmt.Errorf("-player is required")
	}

	kv, err := storage.Open(storage.Options{
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       *dataDir,
	})
	if err != nil {
		return nil, err
	}

	return &target{
		kv:       kv,
		playerID: *player,
		serials:  economy.NewSerialCounter(kv, save.Namespace(*player), envOr("SERIAL_PRODUCT_TAG", "TAPPER")),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "output file (default stdout)")
	t, err := open(fs, args)
	if err != nil {
		return err
	}
	defer t.kv.Close()

	data, err := t.store("").Export(context.Background())
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "-", "input file, - for stdin")
	t, err := open(fs, args)
	if err != nil {
		return err
	}
	defer t.kv.Close()

	var data []byte
	if *in == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*in)
	}
	if err != nil {
		return err
	}

	st, fixes, err := t.store("").Import(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("imported revision=%d balance=%d fixes=%d\n", st.Revision, st.Balance, fixes)
	return nil
}

func cmdReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	withSerials := fs.Bool("serials", false, "also reset card serial counters")
	t, err := open(fs, args)
	if err != nil {
		return err
	}
	defer t.kv.Close()

	policy := economy.SerialsIndependent
	if *withSerials {
		policy = economy.SerialsResetWithSave
	}
	st, err := t.store(policy).Reset(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("reset revision=%d\n", st.Revision)
	return nil
}

func cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	t, err := open(fs, args)
	if err != nil {
		return err
	}
	defer t.kv.Close()

	st := t.store("").Load(context.Background())
	fmt.Printf("revision=%d balance=%d totalEarnings=%d taps=%d cards=%d countries=%d\n",
		st.Revision, st.Balance, st.TotalEarnings, st.Taps, len(st.Collection.Cards), len(st.Owned))
	return nil
}
