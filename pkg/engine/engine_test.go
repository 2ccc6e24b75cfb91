package engine_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/embeddings/mock"
	"github.com/quiltmem/quilt/pkg/engine"
	"github.com/quiltmem/quilt/pkg/feedback"
	"github.com/quiltmem/quilt/pkg/memstore"
	"github.com/quiltmem/quilt/pkg/memstore/chromem"
	"github.com/quiltmem/quilt/pkg/memstore/jsonfile"
	"github.com/quiltmem/quilt/pkg/registry"
	"github.com/quiltmem/quilt/pkg/summarize"
)

// fakeFeedback is an in-memory feedback.Store.
type fakeFeedback struct {
	recs []feedback.Record
}

func (f *fakeFeedback) Append(_ context.Context, rec feedback.Record) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeFeedback) ForComponent(_ context.Context, id string) ([]feedback.Record, error) {
	var out []feedback.Record
	for _, r := range f.recs {
		if r.ComponentID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFeedback) All(_ context.Context) ([]feedback.Record, error) { return f.recs, nil }
func (f *fakeFeedback) Close() error                                     { return nil }

// note builds a Note with a pinned creation time so ordering is exact.
func note(id, content string, weight float64, createdAt time.Time, tags ...string) *component.Note {
	return &component.Note{
		NoteID:  id,
		Content: content,
		Weight:  weight,
		TagSet:  tags,
		Created: createdAt,
	}
}

var _ = Describe("Engine", func() {
	var (
		eng  *engine.Engine
		base time.Time
	)

	// newEngine builds a flat-file-backed engine with a naive summarizer
	// and no semantic layer.
	newEngine := func() *engine.Engine {
		store, err := jsonfile.NewDriver(jsonfile.Config{
			Path: GinkgoT().TempDir() + "/memory.json",
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		e, err := engine.New(engine.Options{
			Store:            store,
			FeedbackStore:    &fakeFeedback{},
			Summarizer:       summarize.NewNaive(),
			SimilarityWeight: 0.7,
			Logger:           zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		base = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		eng = newEngine()
	})

	Describe("RegisterComponent", func() {
		var store *jsonfile.Driver

		// storedEngine exposes the backing driver so tests can check
		// what a failed registration left behind.
		storedEngine := func() *engine.Engine {
			var err error
			store, err = jsonfile.NewDriver(jsonfile.Config{
				Path: GinkgoT().TempDir() + "/memory.json",
			}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			e, err := engine.New(engine.Options{
				Store:         store,
				FeedbackStore: &fakeFeedback{},
				Summarizer:    summarize.NewNaive(),
				Logger:        zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			return e
		}

		It("rejects duplicates without overwrite", func() {
			Expect(eng.RegisterComponent(context.Background(), note("n1", "x", 1, base), false)).To(Succeed())

			err := eng.RegisterComponent(context.Background(), note("n1", "y", 1, base), false)
			Expect(err).To(BeAssignableToTypeOf(registry.DuplicateIDError{}))
		})

		It("persists nothing when the component id is empty", func() {
			e := storedEngine()

			err := e.RegisterComponent(context.Background(), note("", "orphan", 1, base), false)
			Expect(err).To(HaveOccurred())

			recs, err := store.List(context.Background(), memstore.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		It("leaves the persisted record untouched after a rejected duplicate", func() {
			e := storedEngine()
			Expect(e.RegisterComponent(context.Background(), note("n1", "original", 1, base), false)).To(Succeed())

			err := e.RegisterComponent(context.Background(), note("n1", "usurper", 1, base), false)
			Expect(err).To(BeAssignableToTypeOf(registry.DuplicateIDError{}))

			rec, err := store.Load(context.Background(), "n1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Content).To(Equal("original"))
		})

		It("admits exactly one of many concurrent registrations of an id", func() {
			e := storedEngine()

			var (
				wg        sync.WaitGroup
				succeeded atomic.Int64
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					n := note("contested", fmt.Sprintf("writer %d", i), 1, base)
					if e.RegisterComponent(context.Background(), n, false) == nil {
						succeeded.Add(1)
					}
				}(i)
			}
			wg.Wait()

			Expect(succeeded.Load()).To(Equal(int64(1)))

			// The store agrees with the registry on who won.
			winner, err := e.Registry().ByID("contested")
			Expect(err).NotTo(HaveOccurred())
			rec, err := store.Load(context.Background(), "contested")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Content).To(Equal(winner.Render()))
		})

		It("is idempotent under overwrite with identical content", func() {
			n := note("n1", "stable content here", 1, base)
			Expect(eng.RegisterComponent(context.Background(), n, true)).To(Succeed())

			first, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.RegisterComponent(context.Background(), n, true)).To(Succeed())
			second, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Text).To(Equal(first.Text))
		})
	})

	Describe("GetContext", func() {
		It("rejects negative budgets", func() {
			_, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: -1})
			Expect(err).To(HaveOccurred())
		})

		It("never exceeds the token budget", func() {
			for i, content := range []string{
				strings.Repeat("a", 100),
				strings.Repeat("b", 300),
				strings.Repeat("c", 700),
			} {
				n := note(string(rune('a'+i)), content, 1, base.Add(time.Duration(i)*time.Minute))
				Expect(eng.RegisterComponent(context.Background(), n, false)).To(Succeed())
			}

			for _, budget := range []int{0, 10, 50, 100, 1000} {
				result, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: budget})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.TokensUsed).To(BeNumerically("<=", budget))
			}
		})

		It("selects only the higher-scored component when both fill the budget", func() {
			a := note("A", strings.Repeat("a", 200), 0.9, base)
			b := note("B", strings.Repeat("b", 200), 0.3, base)
			Expect(eng.RegisterComponent(context.Background(), a, false)).To(Succeed())
			Expect(eng.RegisterComponent(context.Background(), b, false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Selected).To(HaveLen(1))
			Expect(result.Selected[0].ComponentID).To(Equal("A"))
			Expect(result.Text).To(Equal(strings.Repeat("a", 200)))
		})

		It("summarizes an overflowing component when allowed", func() {
			big := note("big", strings.Repeat("x", 1200), 1, base)
			Expect(eng.RegisterComponent(context.Background(), big, false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{
				TokenBudget:       100,
				SummarizeIfNeeded: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).NotTo(BeEmpty())
			Expect(result.TokensUsed).To(BeNumerically("<=", 100))
			Expect(result.Selected).To(HaveLen(1))
			Expect(result.Selected[0].Summarized).To(BeTrue())
		})

		It("skips overflowing components when summarization is off", func() {
			big := note("big", strings.Repeat("x", 1200), 2, base)
			small := note("small", strings.Repeat("y", 100), 1, base)
			Expect(eng.RegisterComponent(context.Background(), big, false)).To(Succeed())
			Expect(eng.RegisterComponent(context.Background(), small, false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Selected).To(HaveLen(1))
			Expect(result.Selected[0].ComponentID).To(Equal("small"))
		})

		It("is deterministic for identical registry state", func() {
			for i := 0; i < 5; i++ {
				n := note(string(rune('a'+i)), strings.Repeat("z", 40), 1, base.Add(time.Duration(i)*time.Hour))
				Expect(eng.RegisterComponent(context.Background(), n, false)).To(Succeed())
			}

			first, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 30})
			Expect(err).NotTo(HaveOccurred())
			second, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 30})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Selected).To(Equal(first.Selected))
			Expect(second.Text).To(Equal(first.Text))
		})

		It("breaks score ties by recency", func() {
			older := note("older", "old content", 1, base)
			newer := note("newer", "new content", 1, base.Add(time.Hour))
			Expect(eng.RegisterComponent(context.Background(), older, false)).To(Succeed())
			Expect(eng.RegisterComponent(context.Background(), newer, false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Selected[0].ComponentID).To(Equal("newer"))
		})

		It("filters candidates by tags", func() {
			Expect(eng.RegisterComponent(context.Background(), note("db", "db note", 1, base, "db"), false)).To(Succeed())
			Expect(eng.RegisterComponent(context.Background(), note("web", "web note", 1, base, "web"), false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{
				Tags:        []string{"db"},
				TokenBudget: 100,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Selected).To(HaveLen(1))
			Expect(result.Selected[0].ComponentID).To(Equal("db"))
		})

		It("reports the selection without text on dry runs", func() {
			Expect(eng.RegisterComponent(context.Background(), note("n1", strings.Repeat("q", 100), 1, base), false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{
				TokenBudget: 100,
				DryRun:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(BeEmpty())
			Expect(result.Selected).To(HaveLen(1))
			Expect(result.TokensUsed).To(Equal(25))
		})

		It("degrades to feedback ordering when a query has no semantic backend", func() {
			Expect(eng.RegisterComponent(context.Background(), note("n1", "content", 1, base), false)).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{
				Query:       "anything",
				TokenBudget: 100,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SemanticDegraded).To(BeTrue())
			Expect(result.Selected).To(HaveLen(1))
		})
	})

	Describe("RecordFeedback", func() {
		It("shifts ranking through recorded deltas", func() {
			a := note("a", "first note", 1, base)
			b := note("b", "second note", 1, base)
			Expect(eng.RegisterComponent(context.Background(), a, false)).To(Succeed())
			Expect(eng.RegisterComponent(context.Background(), b, false)).To(Succeed())

			Expect(eng.RecordFeedback(context.Background(), "a", 1.0, "very useful")).To(Succeed())

			result, err := eng.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Selected[0].ComponentID).To(Equal("a"))
		})

		It("fails with UnknownComponentError for unregistered ids", func() {
			err := eng.RecordFeedback(context.Background(), "ghost", 1, "")
			Expect(err).To(BeAssignableToTypeOf(registry.UnknownComponentError{}))
		})
	})

	Describe("LoadFromStore", func() {
		It("hydrates persisted components", func() {
			dir := GinkgoT().TempDir()
			store, err := jsonfile.NewDriver(jsonfile.Config{Path: dir + "/memory.json"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			build := func() *engine.Engine {
				e, err := engine.New(engine.Options{
					Store:         store,
					FeedbackStore: &fakeFeedback{},
					Summarizer:    summarize.NewNaive(),
					Logger:        zap.NewNop(),
				})
				Expect(err).NotTo(HaveOccurred())
				return e
			}

			first := build()
			Expect(first.RegisterComponent(context.Background(), note("n1", "durable", 1, base), false)).To(Succeed())

			second := build()
			loaded, err := second.LoadFromStore(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(1))

			result, err := second.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("durable"))
		})
	})

	Describe("with a semantic backend", func() {
		var sem *engine.Engine

		BeforeEach(func() {
			driver, err := chromem.NewDriver(chromem.Config{}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			sem, err = engine.New(engine.Options{
				Store:            driver,
				VectorStore:      driver,
				FeedbackStore:    &fakeFeedback{},
				Embedder:         mock.NewEmbedder(64),
				Summarizer:       summarize.NewNaive(),
				SimilarityWeight: 0.7,
				Logger:           zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			for i, content := range []string{
				"database performance tuning and indexing strategies",
				"gardening tips for spring flowers",
				"sourdough bread baking schedule",
			} {
				n := note([]string{"db", "garden", "bread"}[i], content, 1, base.Add(time.Duration(i)*time.Minute))
				Expect(sem.RegisterComponent(context.Background(), n, false)).To(Succeed())
			}
		})

		It("ranks the on-topic component first in search", func() {
			result, err := sem.SearchSimilar(context.Background(), "database performance", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeFalse())
			Expect(result.Matches).To(HaveLen(3))
			Expect(result.Matches[0].Record.ID).To(Equal("db"))
			Expect(result.Matches[0].Score).To(BeNumerically(">", result.Matches[1].Score))
		})

		It("blends similarity into budgeted selection", func() {
			result, err := sem.GetContext(context.Background(), engine.Request{
				Query:       "database performance",
				TokenBudget: 15,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SemanticDegraded).To(BeFalse())
			Expect(result.Selected).NotTo(BeEmpty())
			Expect(result.Selected[0].ComponentID).To(Equal("db"))
		})

		It("respects the search limit", func() {
			result, err := sem.SearchSimilar(context.Background(), "anything", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Matches).To(HaveLen(1))
		})
	})

	Describe("SearchSimilar without a semantic backend", func() {
		It("fails closed with an explicit degraded result", func() {
			result, err := eng.SearchSimilar(context.Background(), "query", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeTrue())
			Expect(result.Matches).To(BeEmpty())
		})

		It("rejects non-positive limits", func() {
			_, err := eng.SearchSimilar(context.Background(), "query", 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SummarizerStatus", func() {
		It("exposes the summarizer's mode", func() {
			Expect(eng.SummarizerStatus().Mode).To(Equal(summarize.ModeNaive))
		})
	})
})
