package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	oauthadapter "github.com/smallbiznis/linkedroles-worker/internal/adapter/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/config"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/interaction"
)

type options struct {
	timeout time.Duration
	dryRun  bool
	schema  string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "register",
		Short: "Register slash commands and linked-role metadata with the platform",
		// errors are reported by the logger
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "upper bound for each API call")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print the payload instead of sending it")

	root.AddCommand(&cobra.Command{
		Use:   "commands",
		Short: "Overwrite the global application commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, func(ctx context.Context, reg oauthadapter.Registrar, cfg config.Config, logger *zap.Logger) error {
				if opts.dryRun {
					return printJSON(out, interaction.Commands())
				}
				return registerCommands(ctx, reg, logger)
			})
		},
	})

	metadata := &cobra.Command{
		Use:   "metadata",
		Short: "Overwrite the role-connection metadata schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, func(ctx context.Context, reg oauthadapter.Registrar, cfg config.Config, logger *zap.Logger) error {
				path := opts.schema
				if path == "" {
					path = cfg.RoleConnectionSchema
				}
				records, err := loadSchema(path)
				if err != nil {
					return err
				}
				if opts.dryRun {
					return printJSON(out, records)
				}
				return registerMetadata(ctx, reg, records, logger)
			})
		},
	}
	metadata.Flags().StringVar(&opts.schema, "schema", "", "JSON file with metadata records (defaults to ROLE_CONNECTION_SCHEMA)")
	root.AddCommand(metadata)

	return root
}

type action func(ctx context.Context, reg oauthadapter.Registrar, cfg config.Config, logger *zap.Logger) error

func run(parent context.Context, opts *options, fn action) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadRegistration()
	if err != nil {
		logger.Error("load config failed", zap.Error(err))
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.timeout)
	defer cancel()

	client := oauthadapter.NewHTTPProviderClient(&http.Client{Timeout: opts.timeout}, oauthadapter.SettingsFromConfig(cfg))
	if err := fn(ctx, client, cfg, logger); err != nil {
		logger.Error("registration failed", zap.Error(err))
		return err
	}
	return nil
}

func registerCommands(ctx context.Context, reg oauthadapter.Registrar, logger *zap.Logger) error {
	commands := interaction.Commands()
	if err := reg.RegisterCommands(ctx, commands); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Name)
	}
	logger.Info("registered commands", zap.Strings("commands", names))
	return nil
}

func registerMetadata(ctx context.Context, reg oauthadapter.Registrar, records []domainoauth.MetadataRecord, logger *zap.Logger) error {
	out, err := reg.RegisterRoleConnectionMetadata(ctx, records)
	if err != nil {
		return fmt.Errorf("register metadata: %w", err)
	}
	logger.Info("registered role connection metadata", zap.Int("records", len(out)))
	return nil
}

func loadSchema(path string) ([]domainoauth.MetadataRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("no metadata schema given: set --schema or ROLE_CONNECTION_SCHEMA")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var records []domainoauth.MetadataRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	for i, r := range records {
		if r.Key == "" || r.Name == "" {
			return nil, fmt.Errorf("schema record %d: key and name are required", i)
		}
		if r.Type < domainoauth.MetadataIntegerLessThanOrEqual || r.Type > domainoauth.MetadataBooleanNotEqual {
			return nil, fmt.Errorf("schema record %d: unknown type %d", i, r.Type)
		}
	}
	return records, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
