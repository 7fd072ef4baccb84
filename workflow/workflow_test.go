package workflow_test

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/common"
	"github.com/hotosm/oam-stac-ingester/stac"
	"github.com/hotosm/oam-stac-ingester/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"
)

func idOf(doc []byte) string {
	return gjson.GetBytes(doc, "id").String()
}

var _ = Describe("Run", func() {
	var (
		ctx     context.Context
		backend *fakeBackend
		source  *fakeSource
		metrics *workflow.Metrics
		after   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		report  workflow.Report
		err     error
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newFakeBackend()
		metrics = workflow.NewMetrics("", "test")
	})

	run := func(policy common.ExceptionPolicy) {
		wf := workflow.NewWorkflow(backend, policy, metrics)
		report, err = workflow.Run[string](ctx, wf, common.CollectionOAM, source, after)
	}

	Context("when all records are valid", func() {
		BeforeEach(func() {
			source = &fakeSource{records: []string{"a", "b"}}
			run(common.PolicyRaise)
		})
		It("should load every item", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Found).To(Equal(2))
			Expect(report.Loaded).To(Equal(2))
			Expect(report.Errors).To(BeEmpty())
			Expect(backend.items).To(HaveKey("a"))
			Expect(backend.items).To(HaveKey("b"))
		})
		It("should fetch with the cutoff", func() {
			Expect(source.fetched).To(Equal(after))
		})
		It("should tag the items with the collection", func() {
			Expect(gjson.GetBytes(backend.items["a"], "collection").String()).To(Equal(common.CollectionOAM))
		})
		It("should record the metrics", func() {
			n, err := testutil.GatherAndCount(metrics.Registry(), "stac_ingester_loaded_items", "stac_ingester_last_success_timestamp_seconds")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})

	Context("when a record fails with the RAISE policy", func() {
		BeforeEach(func() {
			source = &fakeSource{records: []string{"a", "bad-b", "c"}}
			run(common.PolicyRaise)
		})
		It("should return an error and load nothing", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("bad-b"))
			Expect(backend.loadCalls).To(Equal(0))
			Expect(backend.items).To(BeEmpty())
		})
	})

	Context("when a record fails with the IGNORE policy", func() {
		BeforeEach(func() {
			source = &fakeSource{records: []string{"a", "bad-b"}}
			run(common.PolicyIgnore)
		})
		It("should load the valid records and report the others", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Found).To(Equal(2))
			Expect(report.Loaded).To(Equal(1))
			Expect(backend.items).To(HaveLen(1))
			Expect(backend.items).To(HaveKey("a"))
			Expect(report.Errors).To(HaveLen(1))
			Expect(report.Errors[0]).To(Equal("bad-b: cannot transform"))
		})
	})

	Context("when a record fails with a fatal error and the IGNORE policy", func() {
		BeforeEach(func() {
			source = &fakeSource{records: []string{"a", "fatal-b", "c"}}
			run(common.PolicyIgnore)
		})
		It("should abort the run and load nothing", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("schemas unavailable"))
			Expect(backend.loadCalls).To(Equal(0))
			Expect(backend.items).To(BeEmpty())
		})
	})

	Context("when there is nothing to ingest", func() {
		BeforeEach(func() {
			source = &fakeSource{}
			run(common.PolicyRaise)
		})
		It("should succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Loaded).To(Equal(0))
		})
	})

	Context("when the database fails", func() {
		BeforeEach(func() {
			backend.failLoad = errors.New("connection lost")
			source = &fakeSource{records: []string{"a"}}
			run(common.PolicyIgnore)
		})
		It("should return the error", func() {
			Expect(err).To(MatchError(ContainSubstring("connection lost")))
			Expect(report.Loaded).To(Equal(0))
		})
	})
})

var _ = Describe("CreateCollection", func() {
	It("should upsert the collection", func() {
		backend := newFakeBackend()
		wf := workflow.NewWorkflow(backend, common.PolicyRaise, nil)
		c := stac.NewCollection(common.CollectionOAM, "OpenAerialMap", "imagery", "CC-BY-4.0")
		Expect(wf.CreateCollection(context.Background(), c)).To(Succeed())
		Expect(backend.collections).To(HaveKey(common.CollectionOAM))
		var doc map[string]any
		Expect(json.Unmarshal(backend.collections[common.CollectionOAM], &doc)).To(Succeed())
		Expect(doc["type"]).To(Equal("Collection"))
	})
})
