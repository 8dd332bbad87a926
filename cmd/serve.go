package cmd

import (
	"context"

	"github.com/foomo/funnelstore/pkg/handler"
	"github.com/foomo/funnelstore/pkg/snapshot"
	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if retentionFlag(v) < 1 {
				return errors.Errorf("retention must be at least 1, got %d", retentionFlag(v))
			}

			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			store, err := createStorage(cmd.Context(), v, l)
			if err != nil {
				return errors.Wrap(err, "failed to create storage")
			}

			manager := snapshot.New(l.Named("inst.snapshot"), store,
				snapshot.WithRetention(retentionFlag(v)),
			)

			l.Info("snapshot manager ready", zap.Int("retention", manager.Retention()))

			password := adminPasswordFlag(v)
			if password == "" {
				l.Warn("no admin password configured, only the embed view is available")
			}

			svr.AddReadinessHealthzers(healthz.NewHealthzerFn(func(ctx context.Context) error {
				if _, err := store.List(ctx, snapshot.BackupPrefix); err != nil {
					return errors.Wrap(err, "storage not reachable")
				}
				return nil
			}))

			svr.AddClosers(func(ctx context.Context) error {
				return store.Close()
			})

			svr.AddServices(
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewHTTP(l.Named("inst.handler"), manager,
						handler.WithBasePath(basePathFlag(v)),
						handler.WithAuthenticator(handler.NewBearerAuthenticator(password)),
						handler.WithMaxBodySize(maxBodySizeFlag(v)),
					),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBasePathFlag(flags, v)
	addAdminPasswordFlag(flags, v)
	addRetentionFlag(flags, v)
	addMaxBodySizeFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addGzipLevelFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)
	addStorageTypeFlag(flags, v)
	addStorageDirFlag(flags, v)
	addStorageBlobBucketFlag(flags, v)
	addStorageBlobPrefixFlag(flags, v)
	addStorageBlobRandomSuffixFlag(flags, v)
	addStorageBoltPathFlag(flags, v)
	addStorageSQLDialectFlag(flags, v)
	addStorageSQLDSNFlag(flags, v)
	addStorageSQLTableFlag(flags, v)

	return cmd
}
