package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/gregLibert/mifare-tools/internal/config"
	"github.com/gregLibert/mifare-tools/pkg/mifare"
	"github.com/gregLibert/mifare-tools/pkg/reader"
	"github.com/gregLibert/mifare-tools/pkg/session"
)

var logger = logrus.StandardLogger()

type readersCmd struct{}

type infoCmd struct{}

type readCmd struct {
	Sector int `arg:"positional,required" help:"sector number"`
	Block  int `arg:"positional,required" help:"block within the sector"`
}

type writeCmd struct {
	Sector int    `arg:"positional,required" help:"sector number"`
	Block  int    `arg:"positional,required" help:"block within the sector"`
	Data   string `arg:"positional,required" help:"16 bytes as hex"`
	Force  bool   `arg:"--force" help:"allow writing a sector trailer"`
}

type dumpCmd struct{}

type trailerCmd struct {
	Sector int `arg:"positional,required" help:"sector number"`
}

var args struct {
	Config    string `arg:"--config,-c,env:MIFARE_CONFIG" help:"YAML configuration file"`
	Reader    *int   `arg:"--reader,-r" help:"reader index, overrides the configuration"`
	Key       string `arg:"--key,-k" help:"sector key as 12 hex digits, overrides the configuration"`
	KeyB      bool   `arg:"--key-b,-B" help:"authenticate with key B"`
	PromptKey bool   `arg:"--prompt-key" help:"read the key from the terminal without echo"`
	Wait      bool   `arg:"--wait,-w" help:"wait for a card to enter the field"`
	Verbose   bool   `arg:"--verbose,-v" help:"log every exchange"`
	Trace     bool   `arg:"--trace" help:"print the APDU trace before exiting"`

	Readers *readersCmd `arg:"subcommand:readers" help:"list PC/SC readers"`
	Info    *infoCmd    `arg:"subcommand:info" help:"show UID, ATR and card type"`
	Read    *readCmd    `arg:"subcommand:read" help:"read one block"`
	Write   *writeCmd   `arg:"subcommand:write" help:"write one block"`
	Dump    *dumpCmd    `arg:"subcommand:dump" help:"read every sector the key opens"`
	Trailer *trailerCmd `arg:"subcommand:trailer" help:"decode the access conditions of a sector"`
}

func main() {
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.ConfigureLogger(logger); err != nil {
		logger.Fatalf("invalid log configuration: %v", err)
	}
	if args.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if args.Readers != nil {
		if err := listReaders(); err != nil {
			logger.Fatalf("failed to list readers: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if args.Config == "" {
		return config.Default(), nil
	}
	return config.Load(args.Config)
}

// run opens the reader and the session, and releases both on every path.
func run(cfg *config.Config) error {
	sel := cfg.Selector()
	if args.Reader != nil {
		sel = reader.Selector{Index: *args.Reader}
	}

	rd, err := reader.Open(sel)
	if err != nil {
		return err
	}
	defer func() {
		if err := rd.Close(); err != nil {
			logger.Warnf("failed to release reader: %v", err)
		}
	}()
	fmt.Printf(">> Using reader: %s\n", rd.Name)

	if args.Wait {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		fmt.Println(">> Waiting for a card...")
		if err := rd.WaitForCard(ctx, time.Second); err != nil {
			return err
		}
	}

	opts := []session.Option{session.WithLogger(logger.WithField("reader", rd.Name))}
	g, auto, err := cfg.Geometry()
	if err != nil {
		return err
	}
	if !auto {
		opts = append(opts, session.WithGeometry(g))
	}

	s := session.New(rd, opts...)
	if args.Trace {
		defer printTrace(s)
	}
	defer func() {
		if err := s.Disconnect(); err != nil {
			logger.Warnf("failed to disconnect card: %v", err)
		}
	}()

	uid, err := s.Connect()
	if err != nil {
		return err
	}

	switch {
	case args.Info != nil:
		return showInfo(s, uid)
	case args.Read != nil:
		return readBlock(s, cfg, args.Read)
	case args.Write != nil:
		return writeBlock(s, cfg, args.Write)
	case args.Dump != nil:
		return dump(s, cfg)
	case args.Trailer != nil:
		return showTrailer(s, cfg, args.Trailer)
	}
	return nil
}

// sectorKey picks the key and key type from the flags, then the configuration.
func sectorKey(cfg *config.Config) ([]byte, mifare.KeyType, error) {
	keyType := mifare.KeyA
	if args.KeyB {
		keyType = mifare.KeyB
	}

	switch {
	case args.PromptKey:
		key, err := promptKey()
		return key.Bytes(), keyType, err
	case args.Key != "":
		key, err := mifare.ParseKey(args.Key)
		return key.Bytes(), keyType, err
	case args.KeyB:
		key, ok, err := cfg.KeyB()
		if err != nil {
			return nil, keyType, err
		}
		if !ok {
			return nil, keyType, errors.New("no key B configured, use --key or --prompt-key")
		}
		return key.Bytes(), keyType, nil
	default:
		key, err := cfg.KeyA()
		return key.Bytes(), keyType, err
	}
}

func promptKey() (mifare.Key, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return mifare.Key{}, errors.New("--prompt-key needs an interactive terminal")
	}
	fmt.Fprint(os.Stderr, "Key (12 hex digits): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return mifare.Key{}, fmt.Errorf("read key: %w", err)
	}
	return mifare.ParseKey(string(raw))
}

func printTrace(s *session.Session) {
	fmt.Println("\n=============================================")
	fmt.Println(" APDU TRACE")
	fmt.Println("=============================================")
	for _, tx := range s.Trace() {
		fmt.Println(tx.String())
	}
}
