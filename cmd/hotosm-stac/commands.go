package main

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/catalog"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/common"
	"github.com/hotosm/oam-stac-ingester/interface/catalog/maxar"
	"github.com/hotosm/oam-stac-ingester/interface/catalog/oam"
	"github.com/hotosm/oam-stac-ingester/interface/database/pg"
	"github.com/hotosm/oam-stac-ingester/interface/stacio"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/hotosm/oam-stac-ingester/service/raster"
	"github.com/hotosm/oam-stac-ingester/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type syncConfig struct {
	UploadedSince    string
	UploadedAfter    string
	HandleExceptions string
}

func (c *syncConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.UploadedSince, "uploaded-since", "", "ingest the records uploaded during the last period (seconds or duration, e.g. 86400 or 24h)")
	cmd.Flags().StringVar(&c.UploadedAfter, "uploaded-after", "", "ingest the records uploaded after this date (UTC if no timezone)")
	cmd.Flags().StringVar(&c.HandleExceptions, "handle-exceptions", common.PolicyRaise.String(), "behaviour when a record cannot be transformed (RAISE|IGNORE)")
}

// parse validates the configuration. It does not access the network
func (c *syncConfig) parse() (time.Time, common.ExceptionPolicy, error) {
	after, err := common.ParseUploadedSince(c.UploadedSince, c.UploadedAfter, time.Now())
	if err != nil {
		return time.Time{}, 0, err
	}
	policy, err := common.ExceptionPolicyString(c.HandleExceptions)
	if err != nil {
		return time.Time{}, 0, err
	}
	return after, policy, nil
}

func syncOAMCmd() *cobra.Command {
	conf := syncConfig{}
	cmd := &cobra.Command{
		Use:   "sync-oam",
		Short: "Ingest the OpenAerialMap records uploaded after a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			after, policy, err := conf.parse()
			if err != nil {
				return err
			}
			ctx := log.With(cmd.Context(), zap.String("command", cmd.Name()))
			c, closeFn, err := newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return runSync(ctx, common.CollectionOAM, policy, func(wf *workflow.Workflow) (workflow.Report, error) {
				return workflow.Run[entities.Metadata](ctx, wf, common.CollectionOAM, c.OAMSource(), after)
			})
		},
	}
	conf.addFlags(cmd)
	return cmd
}

func syncMaxarCmd() *cobra.Command {
	conf := syncConfig{}
	cmd := &cobra.Command{
		Use:   "sync-maxar",
		Short: "Ingest the items of the Maxar Open Data events that happened after a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			after, policy, err := conf.parse()
			if err != nil {
				return err
			}
			ctx := log.With(cmd.Context(), zap.String("command", cmd.Name()))
			c, closeFn, err := newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return runSync(ctx, common.CollectionMaxar, policy, func(wf *workflow.Workflow) (workflow.Report, error) {
				return workflow.Run[*entities.MaxarItem](ctx, wf, common.CollectionMaxar, c.MaxarSource(), after)
			})
		},
	}
	conf.addFlags(cmd)
	return cmd
}

func createCollectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "create-collection [" + common.ProviderOAM + "|" + common.ProviderMaxar + "]",
		Short:     "Create or update the collection of a provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{common.ProviderOAM, common.ProviderMaxar},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.With(cmd.Context(), zap.String("command", cmd.Name()))
			c, closeFn, err := newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			collection, err := c.Collection(ctx, args[0])
			if err != nil {
				return err
			}
			backend, err := newBackend(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()
			return workflow.NewWorkflow(backend, common.PolicyRaise, nil).CreateCollection(ctx, collection)
		},
	}
}

func oamItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oam-item <id>",
		Short: "Print the STAC item of an OpenAerialMap record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := log.With(cmd.Context(), zap.String("command", cmd.Name()))
			c, closeFn, err := newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			item, err := c.OAMItem(ctx, args[0])
			if err != nil {
				return err
			}
			doc, err := json.MarshalIndent(item, "", "  ")
			if err != nil {
				return fmt.Errorf("oam-item.Marshal: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	}
}

// runSync connects the database, runs the sync and pushes the metrics
func runSync(ctx context.Context, collection string, policy common.ExceptionPolicy, run func(*workflow.Workflow) (workflow.Report, error)) error {
	backend, err := newBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	metrics := workflow.NewMetrics(viper.GetString("metrics.push_gateway"), "hotosm_stac_"+collection)
	_, err = run(workflow.NewWorkflow(backend, policy, metrics))
	if perr := metrics.Push(ctx); perr != nil {
		log.Logger(ctx).Warn("cannot push metrics", zap.Error(perr))
	}
	return err
}

func newBackend(ctx context.Context) (*pg.BackendDB, error) {
	dsn := pg.DSN(
		viper.GetString("pg.user"),
		viper.GetString("pg.password"),
		viper.GetString("pg.host"),
		viper.GetString("pg.port"),
		viper.GetString("pg.database"),
	)
	backend, err := pg.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	backend.ChunkSize = viper.GetInt("pg.chunk_size")
	return backend, nil
}

// newCatalog creates the upstream clients. The returned function releases them
func newCatalog(ctx context.Context) (*catalog.Catalog, func(), error) {
	retries := viper.GetInt("http.retries")
	httpReader := stacio.NewHTTPReader(nil, retries)
	s3Reader, err := stacio.NewS3Reader(ctx, stacio.S3Config{
		Region:          viper.GetString("s3.region"),
		AccessKeyID:     viper.GetString("s3.access_key_id"),
		SecretAccessKey: viper.GetString("s3.secret_access_key"),
		Endpoint:        viper.GetString("s3.endpoint"),
	})
	if err != nil {
		return nil, nil, err
	}
	reader := stacio.Multi{
		"http":  httpReader,
		"https": httpReader,
		"s3":    s3Reader,
		"file":  stacio.FileReader{},
	}
	closeFn := func() {}
	if viper.GetBool("gs.enabled") {
		gsReader, err := stacio.NewGSReader(ctx)
		if err != nil {
			return nil, nil, err
		}
		reader["gs"] = gsReader
		closeFn = func() {
			if err := gsReader.Close(); err != nil {
				log.Logger(ctx).Warn("gs.Close", zap.Error(err))
			}
		}
	}

	var opts []oam.Option
	if root := viper.GetString("oam.api_root"); root != "" {
		opts = append(opts, oam.WithAPIRoot(root))
	}
	pageSize := viper.GetInt("oam.page_size")
	if pageSize <= 0 {
		pageSize = oam.DefaultPageSize
	}

	return &catalog.Catalog{
		OAMClient:   oam.New(opts...),
		PageSize:    pageSize,
		Projections: raster.NewGDALReader(),
		Reader:      reader,
		Maxar: maxar.Config{
			Root:      viper.GetString("maxar.root"),
			EventInfo: viper.GetString("maxar.event_info"),
		}.WithDefaults(),
	}, closeFn, nil
}

