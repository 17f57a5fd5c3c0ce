// Package cmdutil builds the kerictl cobra command tree and maps engine
// errors to process exit codes, per spec.md §6/§7.
package cmdutil

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	kv "github.com/Arsh-Sandhu/kerigo-lib/kv"
	"github.com/Arsh-Sandhu/kerigo/baser"
	"github.com/Arsh-Sandhu/kerigo/kerierr"
	"github.com/Arsh-Sandhu/kerigo/kevery"
)

// Config holds the flag values common to every subcommand.
type Config struct {
	Name     string
	Alias    string
	Base     string
	Passcode string
	Text     string
}

func bindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Name, "name", "", "habitat name")
	fs.StringVar(&cfg.Alias, "alias", "", "AID alias within the habitat")
	fs.StringVar(&cfg.Base, "base", "", "base directory for the habitat's database")
	fs.StringVar(&cfg.Passcode, "passcode", "", "keystore passcode (external keystore management only; this CLI never derives keys from it)")
	fs.StringVar(&cfg.Text, "text", "", "literal event stream text, or @file to read it from a file")
}

// resolveText reads --text, dereferencing an @file argument.
func resolveText(cfg *Config) ([]byte, error) {
	if cfg.Text == "" {
		return nil, kerierr.New(kerierr.ConfigurationError, "cmdutil.resolveText", fmt.Errorf("--text is required"))
	}
	if len(cfg.Text) > 0 && cfg.Text[0] == '@' {
		return os.ReadFile(cfg.Text[1:])
	}
	return []byte(cfg.Text), nil
}

// openBaser opens the habitat's database at --base, rejecting a
// passcode-only configuration: this CLI never performs keystore
// decryption itself, per spec.md §1's external-collaborator boundary.
func openBaser(cfg *Config, log *zap.SugaredLogger) (*baser.Baser, error) {
	if cfg.Base == "" {
		return nil, kerierr.New(kerierr.ConfigurationError, "cmdutil.openBaser", fmt.Errorf("--base is required"))
	}
	return baser.Open(kv.Options{Path: cfg.Base}, log)
}

// NewRootCmd builds the kerictl command tree.
func NewRootCmd(log *zap.SugaredLogger) *cobra.Command {
	cfg := &Config{}
	root := &cobra.Command{
		Use:   "kerictl",
		Short: "Inspect and feed events into a KERI habitat's event log",
	}
	bindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(newParseCmd(cfg, log))
	return root
}

func newParseCmd(cfg *Config, log *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Feed --text through the parser against the loaded habitat's database",
		RunE: func(cmd *cobra.Command, args []string) error {
			runLog := log.With("run_id", uuid.NewString())

			text, err := resolveText(cfg)
			if err != nil {
				return err
			}
			store, err := openBaser(cfg, runLog)
			if err != nil {
				return err
			}
			defer store.Close()

			kvy, err := kevery.New(store, 0)
			if err != nil {
				return err
			}
			return feedStream(cmd.Context(), kvy, text, runLog)
		},
	}
}

// feedStream hands the stream to ParseStream, the interleaved
// event/signature-group parser (spec.md §4.F's count-code framing), which
// lives in parser.go so this file stays focused on command wiring.
func feedStream(ctx context.Context, kvy *kevery.Kevery, text []byte, log *zap.SugaredLogger) error {
	return ParseStream(ctx, kvy, text, log)
}

// ExitCodeFor maps an engine error to a process exit code, per
// spec.md §7: escrowable failures during a one-shot CLI run are not
// process-fatal misconfigurations, so they still get a distinct nonzero
// code from a ConfigurationError.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case kerierr.Is(err, kerierr.ConfigurationError):
		return 2
	case kerierr.Is(err, kerierr.ValidationError), kerierr.Is(err, kerierr.DerivationError):
		return 3
	case kerierr.Is(err, kerierr.OutOfOrderError), kerierr.Is(err, kerierr.MissingSignatureError), kerierr.Is(err, kerierr.LikelyDuplicitousError):
		return 4
	default:
		return 1
	}
}
