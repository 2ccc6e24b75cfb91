package jsonstore_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/feedback"
	"github.com/quiltmem/quilt/pkg/feedback/jsonstore"
)

var _ = Describe("Store", func() {
	var (
		path   string
		store  *jsonstore.Store
		logger *zap.Logger
	)

	BeforeEach(func() {
		logger = zap.NewNop()
		path = filepath.Join(GinkgoT().TempDir(), "feedback.json")

		var err error
		store, err = jsonstore.NewStore(jsonstore.Config{Path: path}, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a path", func() {
		_, err := jsonstore.NewStore(jsonstore.Config{}, logger)
		Expect(err).To(HaveOccurred())
	})

	It("appends and reads back events in order", func() {
		first := feedback.NewRecord("c1", 0.5, "useful")
		second := feedback.NewRecord("c1", -0.2, "stale")
		third := feedback.NewRecord("c2", 1.0, "")

		Expect(store.Append(context.Background(), first)).To(Succeed())
		Expect(store.Append(context.Background(), second)).To(Succeed())
		Expect(store.Append(context.Background(), third)).To(Succeed())

		recs, err := store.ForComponent(context.Background(), "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].Delta).To(Equal(0.5))
		Expect(recs[1].Delta).To(Equal(-0.2))

		all, err := store.All(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
	})

	It("survives a close and reopen", func() {
		rec := feedback.NewRecord("c1", 0.7, "kept")
		Expect(store.Append(context.Background(), rec)).To(Succeed())
		Expect(store.Close()).To(Succeed())

		reopened, err := jsonstore.NewStore(jsonstore.Config{Path: path}, logger)
		Expect(err).NotTo(HaveOccurred())

		recs, err := reopened.ForComponent(context.Background(), "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Reason).To(Equal("kept"))
	})

	It("returns nothing for unknown components", func() {
		recs, err := store.ForComponent(context.Background(), "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(BeEmpty())
	})
})
