package workflow

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/common"
	db "github.com/hotosm/oam-stac-ingester/interface/database"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/hotosm/oam-stac-ingester/stac"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// Source provides the raw records of a provider and converts them to STAC items
type Source[T any] interface {
	// Fetch returns all the records added at or after "after"
	Fetch(ctx context.Context, after time.Time) ([]T, error)
	// Transform creates the STAC item of a record
	Transform(ctx context.Context, raw T) (*stac.Item, error)
}

// Report summarizes a sync run
type Report struct {
	Found  int
	Loaded int
	Errors []string
}

type Workflow struct {
	db.CatalogDBBackend
	policy  common.ExceptionPolicy
	metrics *Metrics
}

// NewWorkflow creates a workflow. metrics is optional
func NewWorkflow(db db.CatalogDBBackend, policy common.ExceptionPolicy, metrics *Metrics) *Workflow {
	return &Workflow{
		CatalogDBBackend: db,
		policy:           policy,
		metrics:          metrics,
	}
}

// Run fetches the records of the source added since "after", converts them to STAC items
// and upserts them in the collection.
// With PolicyRaise, the first transformation error aborts the run and nothing is loaded.
// With PolicyIgnore, the failing records are skipped and reported, except for fatal errors (see service.Fatal)
// which abort the run.
func Run[T any](ctx context.Context, wf *Workflow, collectionID string, src Source[T], after time.Time) (report Report, err error) {
	ctx = log.With(ctx, zap.String("collection", collectionID))
	start := time.Now()
	defer func() {
		if wf.metrics != nil {
			wf.metrics.Observe(collectionID, report, time.Since(start), err)
		}
	}()

	raws, err := src.Fetch(ctx, after)
	if err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	report.Found = len(raws)
	log.Logger(ctx).Sugar().Infof("Found %d metadata items added since %s", len(raws), after.Format(time.RFC3339))

	items := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		doc, err := transform(ctx, src, raw, collectionID)
		if err != nil {
			if wf.policy == common.PolicyRaise || service.Fatal(err) {
				return report, fmt.Errorf("Run.Transform(%v): %w", raw, err)
			}
			report.Errors = append(report.Errors, fmt.Sprintf("%v: %v", raw, err))
			continue
		}
		items = append(items, doc)
	}

	if err := db.UnitOfWork(ctx, wf, func(tx db.CatalogTxBackend) error {
		var err error
		report.Loaded, err = tx.LoadItems(ctx, items, db.Upsert)
		return err
	}); err != nil {
		report.Loaded = 0
		return report, fmt.Errorf("Run.%w", err)
	}

	logReport(ctx, report)
	return report, nil
}

// transform converts the record and tags the item with the collection
func transform[T any](ctx context.Context, src Source[T], raw T, collectionID string) ([]byte, error) {
	item, err := src.Transform(ctx, raw)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return sjson.SetBytes(doc, "collection", collectionID)
}

func logReport(ctx context.Context, report Report) {
	lg := log.Logger(ctx).Sugar()
	lg.Infof("Completed ingesting %d STAC Items", report.Loaded)
	if len(report.Errors) == 0 {
		return
	}
	lg.Warnf("Encountered errors with %d catalog entries:", len(report.Errors))
	for _, e := range report.Errors {
		lg.Warn(e)
	}
}

// CreateCollection upserts the collection
func (wf *Workflow) CreateCollection(ctx context.Context, c *stac.Collection) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("CreateCollection.Marshal: %w", err)
	}
	if err := wf.LoadCollection(ctx, doc, db.Upsert); err != nil {
		return fmt.Errorf("CreateCollection.%w", err)
	}
	log.Logger(ctx).Info("collection loaded", zap.String("collection", c.ID))
	return nil
}
