package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "hotosm-stac",
	Short:         "Ingest OpenAerialMap and Maxar Open Data metadata into a pgstac database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
	},
}

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	ctx := log.With(context.Background(), zap.String("run_id", uuid.New().String()))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

// bind declares a persistent flag of the root command bound to a viper key and an environment variable
func bind(key, env, flag string, def any, usage string) {
	flags := rootCmd.PersistentFlags()
	switch v := def.(type) {
	case string:
		flags.String(flag, v, usage)
	case int:
		flags.Int(flag, v, usage)
	case bool:
		flags.Bool(flag, v, usage)
	}
	if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
		log.Fatal("could not bind flag", zap.String("flag", flag), zap.Error(err))
	}
	if env != "" {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatal("could not bind env", zap.String("env", env), zap.Error(err))
		}
	}
}

func init() {
	// Logging
	bind("log.level", "LOG_LEVEL", "log-level", "info", "logging level (debug|info|warn|error)")
	bind("log.development", "LOG_DEVELOPMENT", "log-development", false, "human readable logs")

	// Database
	bind("pg.user", "PGUSER", "pguser", "", "pgstac database user")
	bind("pg.password", "PGPASSWORD", "pgpassword", "", "pgstac database password")
	bind("pg.host", "PGHOST", "pghost", "localhost", "pgstac database host")
	bind("pg.port", "PGPORT", "pgport", "5432", "pgstac database port")
	bind("pg.database", "PGDATABASE", "pgdatabase", "postgis", "pgstac database name")
	bind("pg.chunk_size", "PGSTAC_CHUNK_SIZE", "pg-chunk-size", 0, "number of items sent in each pgstac call (0: pg.DefaultChunkSize)")

	// Upstream catalogs
	bind("oam.api_root", "OAM_API_ROOT", "oam-api-root", "", "root of the OpenAerialMap metadata API")
	bind("oam.page_size", "OAM_PAGE_SIZE", "oam-page-size", 0, "number of OAM records per page")
	bind("maxar.root", "MAXAR_ROOT", "maxar-root", "", "root of the Maxar Open Data STAC catalog")
	bind("maxar.event_info", "MAXAR_EVENT_INFO", "maxar-event-info", "", "location of the Maxar event dates")
	bind("http.retries", "HTTP_RETRIES", "http-retries", 3, "number of retries of temporary HTTP failures")

	// Object storages
	bind("s3.region", "AWS_REGION", "s3-region", "", "region of the s3:// buckets")
	bind("s3.access_key_id", "AWS_ACCESS_KEY_ID", "s3-access-key-id", "", "s3 access key (anonymous access if empty)")
	bind("s3.secret_access_key", "AWS_SECRET_ACCESS_KEY", "s3-secret-access-key", "", "s3 secret key")
	bind("s3.endpoint", "AWS_ENDPOINT_URL", "s3-endpoint", "", "custom s3 endpoint")
	bind("gs.enabled", "GS_ENABLED", "gs", false, "read gs:// documents using the application default credentials")

	// Metrics
	bind("metrics.push_gateway", "PUSH_GATEWAY_URL", "push-gateway", "", "prometheus push gateway url (no push if empty)")

	rootCmd.AddCommand(syncOAMCmd(), syncMaxarCmd(), createCollectionCmd(), oamItemCmd())
}
