package agent_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/agent"
	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/engine"
	"github.com/quiltmem/quilt/pkg/feedback"
	"github.com/quiltmem/quilt/pkg/memstore/jsonfile"
	"github.com/quiltmem/quilt/pkg/summarize"
)

// memFeedback is an in-memory feedback.Store.
type memFeedback struct {
	recs []feedback.Record
}

func (m *memFeedback) Append(_ context.Context, rec feedback.Record) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memFeedback) ForComponent(_ context.Context, id string) ([]feedback.Record, error) {
	var out []feedback.Record
	for _, r := range m.recs {
		if r.ComponentID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memFeedback) All(_ context.Context) ([]feedback.Record, error) { return m.recs, nil }
func (m *memFeedback) Close() error                                     { return nil }

// flakyStore rejects records whose content contains "boom".
type flakyStore struct {
	*jsonfile.Driver
}

func (s *flakyStore) Save(ctx context.Context, rec component.Record) error {
	if strings.Contains(rec.Content, "boom") {
		return errors.New("save rejected")
	}
	return s.Driver.Save(ctx, rec)
}

func newStore() *jsonfile.Driver {
	store, err := jsonfile.NewDriver(jsonfile.Config{
		Path: GinkgoT().TempDir() + "/memory.json",
	}, zap.NewNop())
	Expect(err).NotTo(HaveOccurred())
	return store
}

// buildAgent wires a flat-file agent with in-memory feedback and the naive
// summarizer.
func buildAgent() *agent.Agent {
	eng, err := engine.New(engine.Options{
		Store:         newStore(),
		FeedbackStore: &memFeedback{},
		Summarizer:    summarize.NewNaive(),
		Logger:        zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return agent.NewWithEngine(eng, zap.NewNop())
}

var _ = Describe("Agent", func() {
	var a *agent.Agent

	build := func(opts engine.Options) *agent.Agent {
		if opts.FeedbackStore == nil {
			opts.FeedbackStore = &memFeedback{}
		}
		if opts.Summarizer == nil {
			opts.Summarizer = summarize.NewNaive()
		}
		opts.Logger = zap.NewNop()
		eng, err := engine.New(opts)
		Expect(err).NotTo(HaveOccurred())
		return agent.NewWithEngine(eng, zap.NewNop())
	}

	BeforeEach(func() {
		a = build(engine.Options{Store: newStore()})
	})

	Describe("AddGoal", func() {
		It("returns an id and tracks the goal as active", func() {
			id, err := a.AddGoal(context.Background(), "ship the release", 2.0, nil, []string{"release"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			goals := a.ActiveGoals()
			Expect(goals).To(HaveLen(1))
			Expect(goals[0].ID).To(Equal(id))
			Expect(goals[0].Priority).To(Equal(2.0))
			Expect(goals[0].Progress).To(BeZero())
		})

		It("normalizes non-positive priority to 1.0", func() {
			id, err := a.AddGoal(context.Background(), "low stakes", -3, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.ActiveGoals()[0].Priority).To(Equal(1.0))
			Expect(id).NotTo(BeEmpty())
		})

		It("projects the goal into assembled context", func() {
			_, err := a.AddGoal(context.Background(), "learn everything", 1, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			result, err := a.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(ContainSubstring("learn everything"))
			Expect(result.Text).To(ContainSubstring("[goal 0%]"))
		})
	})

	Describe("UpdateGoalProgress", func() {
		var id string

		BeforeEach(func() {
			var err error
			id, err = a.AddGoal(context.Background(), "track progress", 1, nil, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("clamps values below zero to zero", func() {
			Expect(a.UpdateGoalProgress(context.Background(), id, -0.5)).To(Succeed())
			Expect(a.ActiveGoals()[0].Progress).To(BeZero())
		})

		It("clamps values above one to one", func() {
			Expect(a.UpdateGoalProgress(context.Background(), id, 1.7)).To(Succeed())
			// Fully progressed goals leave the active set.
			Expect(a.ActiveGoals()).To(BeEmpty())
			Expect(a.GetStats().CompletedGoals).To(Equal(1))
		})

		It("updates the rendered projection", func() {
			Expect(a.UpdateGoalProgress(context.Background(), id, 0.5)).To(Succeed())

			result, err := a.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(ContainSubstring("[goal 50%]"))
		})

		It("is a reported no-op for unknown goals", func() {
			err := a.UpdateGoalProgress(context.Background(), "missing", 0.5)
			Expect(err).To(BeAssignableToTypeOf(agent.UnknownGoalError{}))
			Expect(a.ActiveGoals()[0].Progress).To(BeZero())
		})
	})

	Describe("AddTask and AddLearning", func() {
		It("registers a task rendition with its outcome", func() {
			_, err := a.AddTask(context.Background(), "migrate db", "moved 3 tables", true, nil)
			Expect(err).NotTo(HaveOccurred())

			result, err := a.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(ContainSubstring("[task:ok] migrate db"))
		})

		It("registers a sourced learning", func() {
			_, err := a.AddLearning(context.Background(), "indexes beat scans", "profiling", 1.5, nil)
			Expect(err).NotTo(HaveOccurred())

			result, err := a.GetContext(context.Background(), engine.Request{TokenBudget: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(ContainSubstring("[learning:profiling]"))
		})
	})

	Describe("batch adds", func() {
		It("continues past failed items and reports their indexes", func() {
			flaky := build(engine.Options{Store: &flakyStore{Driver: newStore()}})

			ids, failures := flaky.AddTasks(context.Background(), []agent.TaskInput{
				{Name: "one", Summary: "fine", Success: true},
				{Name: "two", Summary: "boom", Success: true},
				{Name: "three", Summary: "also fine", Success: false},
			})
			Expect(ids).To(HaveLen(3))
			Expect(ids[0]).NotTo(BeEmpty())
			Expect(ids[1]).To(BeEmpty())
			Expect(ids[2]).NotTo(BeEmpty())
			Expect(failures).To(HaveLen(1))
			Expect(failures[0].Index).To(Equal(1))
		})

		It("adds goals and learnings positionally", func() {
			ids, failures := a.AddGoals(context.Background(), []agent.GoalInput{
				{Description: "first", Priority: 1},
				{Description: "second", Priority: 2},
			})
			Expect(failures).To(BeEmpty())
			Expect(ids).To(HaveLen(2))
			Expect(a.ActiveGoals()).To(HaveLen(2))

			lids, lfailures := a.AddLearnings(context.Background(), []agent.LearningInput{
				{Content: "a", Source: "s1"},
				{Content: "b"},
			})
			Expect(lfailures).To(BeEmpty())
			Expect(lids).To(HaveLen(2))
		})
	})

	Describe("GetStats", func() {
		It("tallies components by kind and outcome", func() {
			_, err := a.AddGoal(context.Background(), "g1", 1, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			done, err := a.AddGoal(context.Background(), "g2", 1, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.UpdateGoalProgress(context.Background(), done, 1)).To(Succeed())

			_, err = a.AddTask(context.Background(), "t1", "ok", true, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = a.AddTask(context.Background(), "t2", "bad", false, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = a.AddLearning(context.Background(), "l1", "docs", 1, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = a.AddLearning(context.Background(), "l2", "", 1, nil)
			Expect(err).NotTo(HaveOccurred())

			stats := a.GetStats()
			Expect(stats.Components).To(Equal(6))
			Expect(stats.Goals).To(Equal(2))
			Expect(stats.ActiveGoals).To(Equal(1))
			Expect(stats.CompletedGoals).To(Equal(1))
			Expect(stats.Tasks).To(Equal(2))
			Expect(stats.TasksOK).To(Equal(1))
			Expect(stats.TasksFail).To(Equal(1))
			Expect(stats.Learnings).To(Equal(2))
			Expect(stats.LearningsBySource).To(HaveKeyWithValue("docs", 1))
			Expect(stats.LearningsBySource).To(HaveKeyWithValue("unknown", 1))
		})
	})

	Describe("feedback passthrough", func() {
		It("records feedback against registered components", func() {
			id, err := a.AddTask(context.Background(), "t", "summary", true, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.RecordFeedback(context.Background(), id, 0.5, "helpful")).To(Succeed())
		})
	})

	Describe("LoadFromStore", func() {
		It("rebuilds the goal table from persisted goal components", func() {
			store := newStore()

			first := build(engine.Options{Store: store})
			id, err := first.AddGoal(context.Background(), "durable goal", 2, nil, []string{"t"})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.UpdateGoalProgress(context.Background(), id, 0.25)).To(Succeed())

			second := build(engine.Options{Store: store})
			loaded, err := second.LoadFromStore(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(1))

			goals := second.ActiveGoals()
			Expect(goals).To(HaveLen(1))
			Expect(goals[0].ID).To(Equal(id))
			Expect(goals[0].Description).To(Equal("durable goal"))
			Expect(goals[0].Progress).To(BeNumerically("~", 0.25, 1e-4))
		})
	})

	Describe("SummarizerStatus", func() {
		It("reports the engine's summarizer mode", func() {
			Expect(a.SummarizerStatus().Mode).To(Equal(summarize.ModeNaive))
		})
	})
})
