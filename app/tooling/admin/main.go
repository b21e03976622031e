// This program performs administrative tasks against the blocks a node
// has stored.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ArthurBonsu/tinc-blockchain/app/tooling/admin/commands"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args  conf.Args
		State struct {
			GenesisPath string `conf:"default:zblock/genesis.json"`
			Storage     string `conf:"default:leveldb"`
			DBPath      string `conf:"default:zblock/blocks/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "tinc blockchain admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis file: %w", err)
	}

	strg, err := storage.Open(cfg.State.Storage, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	// Constructing the state replays every stored block from genesis, so
	// a corrupt or tampered chain fails here.
	st, err := state.New(state.Config{
		Genesis: gen,
		Storage: strg,
		EvHandler: func(v string, args ...any) {
			log.Debugw(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		strg.Close()
		return fmt.Errorf("replay chain: %w", err)
	}
	defer st.Shutdown()

	return processCommands(cfg.Args, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, st *state.State) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), st); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "blocks":
		if err := commands.Blocks(os.Stdout, args.Num(1), args.Num(2), st); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}

	case "receipt":
		if err := commands.Receipt(os.Stdout, args.Num(1), st); err != nil {
			return fmt.Errorf("getting receipt: %w", err)
		}

	case "verify":
		if err := commands.Verify(os.Stdout, st); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}

	default:
		fmt.Println("bals [account]: show the balances of every or one account")
		fmt.Println("blocks [from] [to]: show the blocks in the height range")
		fmt.Println("receipt <hash>: show the receipt of a transaction")
		fmt.Println("verify: replay the stored chain and show the head")
	}

	return nil
}
