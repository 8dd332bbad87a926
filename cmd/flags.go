package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

// ------------------------------------------------------------------------------------------------
// ~ Server
// ------------------------------------------------------------------------------------------------

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "FUNNEL_ADDRESS")
}

func basePathFlag(v *viper.Viper) string {
	return v.GetString("base_path")
}

func addBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("base-path", "/api", "Base path to export the data endpoint on")
	_ = v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = v.BindEnv("base_path", "FUNNEL_BASE_PATH")
}

func adminPasswordFlag(v *viper.Viper) string {
	return v.GetString("admin.password")
}

func addAdminPasswordFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("admin-password", "", "Shared secret expected as bearer token by the admin actions")
	_ = v.BindPFlag("admin.password", flags.Lookup("admin-password"))
	_ = v.BindEnv("admin.password", "ADMIN_PASSWORD")
}

func retentionFlag(v *viper.Viper) int {
	return v.GetInt("retention")
}

func addRetentionFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("retention", 10, "Number of backups to keep")
	_ = v.BindPFlag("retention", flags.Lookup("retention"))
	_ = v.BindEnv("retention", "FUNNEL_RETENTION")
}

func maxBodySizeFlag(v *viper.Viper) int64 {
	return v.GetInt64("max_body_size")
}

func addMaxBodySizeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int64("max-body-size", 10<<20, "Maximum size of a posted document in bytes")
	_ = v.BindPFlag("max_body_size", flags.Lookup("max-body-size"))
	_ = v.BindEnv("max_body_size", "FUNNEL_MAX_BODY_SIZE")
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 0, "Graceful period before shutting down")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", "FUNNEL_GRACEFUL_PERIOD")
}

func gzipLevelFlag(v *viper.Viper) int {
	return v.GetInt("gzip.level")
}

func addGzipLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("gzip-level", -1, "Gzip compression level of responses")
	_ = v.BindPFlag("gzip.level", flags.Lookup("gzip-level"))
	_ = v.BindEnv("gzip.level", "FUNNEL_GZIP_LEVEL")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func servicePProfEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.pprof.enabled")
}

func addServicePProfEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-pprof-enabled", false, "Enable pprof service")
	_ = v.BindPFlag("service.pprof.enabled", flags.Lookup("service-pprof-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}

// ------------------------------------------------------------------------------------------------
// ~ Storage
// ------------------------------------------------------------------------------------------------

func storageTypeFlag(v *viper.Viper) string {
	return v.GetString("storage.type")
}

func addStorageTypeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-type", "filesystem", "Storage backend: filesystem, blob, bolt or sql")
	_ = v.BindPFlag("storage.type", flags.Lookup("storage-type"))
	_ = v.BindEnv("storage.type", "FUNNEL_STORAGE_TYPE")
}

func storageDirFlag(v *viper.Viper) string {
	return v.GetString("storage.dir")
}

func addStorageDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-dir", "/var/lib/funnelstore", "Directory of the filesystem storage")
	_ = v.BindPFlag("storage.dir", flags.Lookup("storage-dir"))
	_ = v.BindEnv("storage.dir", "FUNNEL_STORAGE_DIR")
}

func storageBlobBucketFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.bucket")
}

func addStorageBlobBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-bucket", "", "Bucket url of the blob storage (gs://, s3://, azblob://, file://, mem://)")
	_ = v.BindPFlag("storage.blob.bucket", flags.Lookup("storage-blob-bucket"))
	_ = v.BindEnv("storage.blob.bucket", "FUNNEL_STORAGE_BLOB_BUCKET")
}

func storageBlobPrefixFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.prefix")
}

func addStorageBlobPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-prefix", "", "Object key prefix inside the bucket")
	_ = v.BindPFlag("storage.blob.prefix", flags.Lookup("storage-blob-prefix"))
	_ = v.BindEnv("storage.blob.prefix", "FUNNEL_STORAGE_BLOB_PREFIX")
}

func storageBlobRandomSuffixFlag(v *viper.Viper) bool {
	return v.GetBool("storage.blob.random_suffix")
}

func addStorageBlobRandomSuffixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("storage-blob-random-suffix", false, "Write every object under a fresh random locator")
	_ = v.BindPFlag("storage.blob.random_suffix", flags.Lookup("storage-blob-random-suffix"))
	_ = v.BindEnv("storage.blob.random_suffix", "FUNNEL_STORAGE_BLOB_RANDOM_SUFFIX")
}

func storageBoltPathFlag(v *viper.Viper) string {
	return v.GetString("storage.bolt.path")
}

func addStorageBoltPathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-bolt-path", "/var/lib/funnelstore/funnel.db", "Database file of the bolt storage")
	_ = v.BindPFlag("storage.bolt.path", flags.Lookup("storage-bolt-path"))
	_ = v.BindEnv("storage.bolt.path", "FUNNEL_STORAGE_BOLT_PATH")
}

func storageSQLDialectFlag(v *viper.Viper) string {
	return v.GetString("storage.sql.dialect")
}

func addStorageSQLDialectFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-sql-dialect", "sqlite", "SQL dialect: sqlite or postgres")
	_ = v.BindPFlag("storage.sql.dialect", flags.Lookup("storage-sql-dialect"))
	_ = v.BindEnv("storage.sql.dialect", "FUNNEL_STORAGE_SQL_DIALECT")
}

func storageSQLDSNFlag(v *viper.Viper) string {
	return v.GetString("storage.sql.dsn")
}

func addStorageSQLDSNFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-sql-dsn", "", "Data source name of the sql storage")
	_ = v.BindPFlag("storage.sql.dsn", flags.Lookup("storage-sql-dsn"))
	_ = v.BindEnv("storage.sql.dsn", "FUNNEL_STORAGE_SQL_DSN")
}

func storageSQLTableFlag(v *viper.Viper) string {
	return v.GetString("storage.sql.table")
}

func addStorageSQLTableFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-sql-table", "funnel_store", "Table of the sql storage")
	_ = v.BindPFlag("storage.sql.table", flags.Lookup("storage-sql-table"))
	_ = v.BindEnv("storage.sql.table", "FUNNEL_STORAGE_SQL_TABLE")
}

// ------------------------------------------------------------------------------------------------
// ~ Client
// ------------------------------------------------------------------------------------------------

func serverFlag(v *viper.Viper) string {
	return v.GetString("server")
}

func addServerFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("server", "http://127.0.0.1:8080/api", "Server url including the base path")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindEnv("server", "FUNNEL_SERVER")
}

func tokenFlag(v *viper.Viper) string {
	return v.GetString("token")
}

func addTokenFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("token", "", "Admin password sent as bearer token")
	_ = v.BindPFlag("token", flags.Lookup("token"))
	_ = v.BindEnv("token", "ADMIN_PASSWORD")
}

func timeoutFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("timeout")
}

func addTimeoutFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("timeout", 30*time.Second, "Request timeout")
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = v.BindEnv("timeout", "FUNNEL_TIMEOUT")
}

func outFlag(v *viper.Viper) string {
	return v.GetString("out")
}

func addOutFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("out", "", "Write the document to this file instead of stdout")
	_ = v.BindPFlag("out", flags.Lookup("out"))
}

func promoteFlag(v *viper.Viper) bool {
	return v.GetBool("promote")
}

func addPromoteFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("promote", false, "Save the restored backup as the current document")
	_ = v.BindPFlag("promote", flags.Lookup("promote"))
}

func concurrencyFlag(v *viper.Viper) int {
	return v.GetInt("concurrency")
}

func addConcurrencyFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("concurrency", 4, "Number of parallel downloads")
	_ = v.BindPFlag("concurrency", flags.Lookup("concurrency"))
}
