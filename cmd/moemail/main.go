// Command moemail provisions temporary mailboxes and waits for
// verification codes from the command line.
//
// Settings come from flags, then MOEMAIL_* environment variables, which
// may be placed in a .env file in the working directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	moemail "github.com/moemail/client-go"
)

const usage = `usage: moemail <command> [flags]

commands:
  domains     list the domains the provider accepts
  provision   create a mailbox and print it as JSON
  wait        poll a mailbox for a verification code
  run         provision, print the address, then wait for a code`

// Config holds the process environment so commands can be tested.
type Config struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	LoadEnv func() error
}

// DefaultConfig uses the real process environment.
func DefaultConfig() Config {
	return Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		LoadEnv: func() error {
			err := godotenv.Load()
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		},
	}
}

// mailboxOutput is the JSON form of a mailbox on stdout and stdin.
type mailboxOutput struct {
	Address string `json:"address"`
	ID      string `json:"id"`
	Domain  string `json:"domain"`
}

// common holds the flags every command accepts.
type common struct {
	baseURL string
	apiKey  string
	proxy   string
	domain  string
	timeout time.Duration
	verbose bool
}

func (c *common) register(fs *flag.FlagSet, getenv func(string) string) {
	baseURL := getenv("MOEMAIL_URL")
	if baseURL == "" {
		baseURL = moemail.DefaultBaseURL
	}
	fs.StringVar(&c.baseURL, "url", baseURL, "provider base URL (MOEMAIL_URL)")
	fs.StringVar(&c.apiKey, "api-key", getenv("MOEMAIL_API_KEY"), "API key (MOEMAIL_API_KEY)")
	fs.StringVar(&c.proxy, "proxy", getenv("MOEMAIL_PROXY"), "HTTP or SOCKS5 proxy URL (MOEMAIL_PROXY)")
	fs.StringVar(&c.domain, "domain", getenv("MOEMAIL_DOMAIN"), "mailbox domain (MOEMAIL_DOMAIN)")
	fs.DurationVar(&c.timeout, "request-timeout", moemail.DefaultTimeout, "per-request timeout")
	fs.BoolVar(&c.verbose, "v", false, "log HTTP traffic to stderr")
}

func (c *common) client(stderr io.Writer) (*moemail.Client, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return moemail.New(
		moemail.WithBaseURL(c.baseURL),
		moemail.WithAPIKey(c.apiKey),
		moemail.WithProxy(c.proxy),
		moemail.WithDomain(c.domain),
		moemail.WithTimeout(c.timeout),
		moemail.WithLogger(moemail.SlogLogger(logger)),
	)
}

func run(ctx context.Context, args []string, cfg Config) error {
	if len(args) < 2 {
		return errors.New(usage)
	}
	if cfg.LoadEnv != nil {
		if err := cfg.LoadEnv(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "domains":
		return runDomains(ctx, rest, cfg)
	case "provision":
		return runProvision(ctx, rest, cfg)
	case "wait":
		return runWait(ctx, rest, cfg)
	case "run":
		return runAll(ctx, rest, cfg)
	case "help", "-h", "--help":
		fmt.Fprintln(cfg.Stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n%s", cmd, usage)
	}
}

func newFlagSet(name string, cfg Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	return fs
}

func runDomains(ctx context.Context, args []string, cfg Config) error {
	var opts common
	fs := newFlagSet("domains", cfg)
	opts.register(fs, cfg.Getenv)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := opts.client(cfg.Stderr)
	if err != nil {
		return err
	}
	for _, d := range client.AvailableDomains(ctx) {
		fmt.Fprintln(cfg.Stdout, d)
	}
	return nil
}

func runProvision(ctx context.Context, args []string, cfg Config) error {
	var opts common
	fs := newFlagSet("provision", cfg)
	opts.register(fs, cfg.Getenv)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := opts.client(cfg.Stderr)
	if err != nil {
		return err
	}
	mb, err := provision(ctx, client, opts.domain)
	if err != nil {
		return err
	}
	return json.NewEncoder(cfg.Stdout).Encode(toOutput(mb))
}

// waitFlags are shared by wait and run.
type waitFlags struct {
	timeout  time.Duration
	interval time.Duration
	since    string
}

func (w *waitFlags) register(fs *flag.FlagSet) {
	fs.DurationVar(&w.timeout, "timeout", moemail.DefaultPollTimeout, "how long to wait for a code")
	fs.DurationVar(&w.interval, "interval", moemail.DefaultPollInterval, "pause between inbox checks")
	fs.StringVar(&w.since, "since", "", "ignore messages received before this RFC 3339 time")
}

func (w *waitFlags) sinceTime(fallback time.Time) (time.Time, error) {
	if w.since == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, w.since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -since: %w", err)
	}
	return t, nil
}

func runWait(ctx context.Context, args []string, cfg Config) error {
	var (
		opts    common
		wait    waitFlags
		address string
		id      string
	)
	fs := newFlagSet("wait", cfg)
	opts.register(fs, cfg.Getenv)
	wait.register(fs)
	fs.StringVar(&address, "address", "", "mailbox address; read as JSON from stdin when empty")
	fs.StringVar(&id, "id", "", "mailbox provider id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mb := moemail.Mailbox{Address: address, ProviderID: id}
	if address == "" && id == "" {
		var in mailboxOutput
		if err := json.NewDecoder(cfg.Stdin).Decode(&in); err != nil {
			return fmt.Errorf("read mailbox from stdin: %w", err)
		}
		mb = moemail.Mailbox{Address: in.Address, ProviderID: in.ID, Domain: in.Domain}
	}

	since, err := wait.sinceTime(time.Time{})
	if err != nil {
		return err
	}
	client, err := opts.client(cfg.Stderr)
	if err != nil {
		return err
	}
	if !client.UseMailbox(mb) {
		return errors.New("wait needs both a mailbox address and id")
	}
	return waitForCode(ctx, client, wait, since, cfg.Stdout)
}

func runAll(ctx context.Context, args []string, cfg Config) error {
	var (
		opts common
		wait waitFlags
	)
	fs := newFlagSet("run", cfg)
	opts.register(fs, cfg.Getenv)
	wait.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := opts.client(cfg.Stderr)
	if err != nil {
		return err
	}
	started := time.Now()
	mb, err := provision(ctx, client, opts.domain)
	if err != nil {
		return err
	}
	fmt.Fprintf(cfg.Stderr, "Send the verification email to: %s\n", mb.Address)

	since, err := wait.sinceTime(started)
	if err != nil {
		return err
	}
	return waitForCode(ctx, client, wait, since, cfg.Stdout)
}

func provision(ctx context.Context, client *moemail.Client, domain string) (moemail.Mailbox, error) {
	if !client.Provision(ctx, domain) {
		return moemail.Mailbox{}, errors.New("could not provision a mailbox (run with -v for details)")
	}
	mb, _ := client.Mailbox()
	return mb, nil
}

func waitForCode(ctx context.Context, client *moemail.Client, w waitFlags, since time.Time, stdout io.Writer) error {
	code, ok := client.PollForCode(ctx, w.timeout, w.interval, since)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no verification code within %s", w.timeout)
	}
	fmt.Fprintln(stdout, code)
	return nil
}

func toOutput(mb moemail.Mailbox) mailboxOutput {
	return mailboxOutput{Address: mb.Address, ID: mb.ProviderID, Domain: mb.Domain}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
