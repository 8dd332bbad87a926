package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/foomo/funnelstore/client"
	"github.com/foomo/funnelstore/pkg/snapshot"
	"github.com/foomo/funnelstore/responses"
	keelhttp "github.com/foomo/keel/net/http"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func NewBackupsCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List the backups of a server, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(v)
			if err != nil {
				return err
			}
			backups, err := c.Backups(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to list backups")
			}
			for _, b := range backups {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.Date, b.Key)
			}
			return nil
		},
	}
	addClientFlags(cmd.Flags(), v)
	return cmd
}

func NewRestoreCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "restore <key>",
		Short: "Fetch a backup, optionally saving it as the current document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(v)
			if err != nil {
				return err
			}
			doc, err := c.Restore(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrap(err, "failed to restore backup")
			}
			if promoteFlag(v) {
				commit, err := c.Save(cmd.Context(), doc)
				if err != nil {
					return errors.Wrap(err, "failed to promote backup")
				}
				zap.L().Info("promoted backup", zap.String("key", args[0]), zap.String("timestamp", commit.Timestamp))
			}
			return writeDocument(cmd.OutOrStdout(), outFlag(v), doc)
		},
	}
	flags := cmd.Flags()
	addClientFlags(flags, v)
	addOutFlag(flags, v)
	addPromoteFlag(flags, v)
	return cmd
}

func NewSaveCommand() *cobra.Command {
	return newWriteCommand("save <file>", "Replace the current document, keeping a backup of the old one",
		func(c *client.Client) writeFn { return c.Save },
	)
}

func NewImportCommand() *cobra.Command {
	return newWriteCommand("import <file>", "Replace the current document without taking a backup",
		func(c *client.Client) writeFn { return c.Import },
	)
}

func NewExportCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Download every backup into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(v)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(args[0], 0o700); err != nil {
				return err
			}
			backups, err := c.Backups(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to list backups")
			}

			g, gCtx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrencyFlag(v), 1))
			for _, b := range backups {
				g.Go(func() error {
					doc, err := c.Restore(gCtx, b.Key)
					if err != nil {
						return errors.Wrapf(err, "failed to fetch %s", b.Key)
					}
					return os.WriteFile(filepath.Join(args[0], filepath.Base(b.Key)+".json"), doc, 0o600)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			zap.L().Info("exported backups", zap.Int("count", len(backups)), zap.String("dir", args[0]))
			return nil
		},
	}
	flags := cmd.Flags()
	addClientFlags(flags, v)
	addConcurrencyFlag(flags, v)
	return cmd
}

// ------------------------------------------------------------------------------------------------
// ~ Private
// ------------------------------------------------------------------------------------------------

type writeFn func(ctx context.Context, doc snapshot.Document) (*responses.Commit, error)

func newWriteCommand(use, short string, fn func(c *client.Client) writeFn) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read document")
			}
			c, err := newClient(v)
			if err != nil {
				return err
			}
			commit, err := fn(c)(cmd.Context(), doc)
			if err != nil {
				return errors.Wrap(err, "failed to write document")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), commit.Timestamp)
			return err
		},
	}
	addClientFlags(cmd.Flags(), v)
	return cmd
}

func addClientFlags(flags *pflag.FlagSet, v *viper.Viper) {
	addServerFlag(flags, v)
	addTokenFlag(flags, v)
	addTimeoutFlag(flags, v)
}

func newClient(v *viper.Viper) (*client.Client, error) {
	return client.New(serverFlag(v),
		client.WithToken(tokenFlag(v)),
		client.WithHTTPClient(
			keelhttp.NewHTTPClient(
				keelhttp.HTTPClientWithTimeout(timeoutFlag(v)),
				keelhttp.HTTPClientWithTelemetry(),
			),
		),
	)
}

// readDocument reads a JSON document from a file, "-" reads stdin
func readDocument(in io.Reader, path string) (snapshot.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !jsoniter.Valid(data) {
		return nil, errors.Errorf("%s does not contain valid json", path)
	}
	return snapshot.Document(data), nil
}

func writeDocument(stdout io.Writer, path string, doc snapshot.Document) error {
	if path != "" {
		return os.WriteFile(path, doc, 0o600)
	}
	_, err := fmt.Fprintln(stdout, string(doc))
	return err
}
