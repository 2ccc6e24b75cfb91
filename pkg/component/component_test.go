package component_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quiltmem/quilt/pkg/component"
)

var _ = Describe("TaskSummary", func() {
	It("renders outcome, name, and summary", func() {
		task := component.NewTaskSummary("t1", "migrate-db", "schema migrated cleanly", true, nil)
		Expect(task.Render()).To(Equal("[task:ok] migrate-db: schema migrated cleanly"))

		failed := component.NewTaskSummary("t2", "deploy", "rollout timed out", false, nil)
		Expect(failed.Render()).To(Equal("[task:failed] deploy: rollout timed out"))
	})

	It("weighs successful tasks above failed ones", func() {
		ok := component.NewTaskSummary("", "a", "done", true, nil)
		failed := component.NewTaskSummary("", "b", "broke", false, nil)
		Expect(ok.BaseWeight()).To(BeNumerically(">", failed.BaseWeight()))
	})

	It("assigns a fresh id when none is given", func() {
		task := component.NewTaskSummary("", "a", "done", true, nil)
		Expect(task.ID()).NotTo(BeEmpty())
	})
})

var _ = Describe("Learning", func() {
	It("includes the source in the rendering when present", func() {
		l := component.NewLearning("", "indexes beat table scans", "benchmark", 2.0, nil)
		Expect(l.Render()).To(Equal("[learning:benchmark] indexes beat table scans"))

		bare := component.NewLearning("", "keep functions small", "", 1.0, nil)
		Expect(bare.Render()).To(Equal("[learning] keep functions small"))
	})

	It("normalizes non-positive importance to 1.0", func() {
		l := component.NewLearning("", "x", "", -3, nil)
		Expect(l.BaseWeight()).To(Equal(1.0))
	})
})

var _ = Describe("GoalNote", func() {
	It("renders progress as a percentage", func() {
		g := &component.GoalNote{GoalID: "g1", Description: "ship v2", Progress: 0.25}
		Expect(g.Render()).To(Equal("[goal 25%] ship v2"))
	})
})

var _ = Describe("HasAnyTag", func() {
	note := component.NewNote("n1", "content", 1.0, []string{"Infra", "db"})

	It("matches case-insensitively on any shared tag", func() {
		Expect(component.HasAnyTag(note, []string{"DB"})).To(BeTrue())
		Expect(component.HasAnyTag(note, []string{"web", "infra"})).To(BeTrue())
	})

	It("rejects disjoint tag sets", func() {
		Expect(component.HasAnyTag(note, []string{"web"})).To(BeFalse())
	})

	It("matches everything with an empty query", func() {
		Expect(component.HasAnyTag(note, nil)).To(BeTrue())
	})
})

var _ = Describe("Record round trip", func() {
	It("preserves a task through serialization", func() {
		task := component.NewTaskSummary("t1", "migrate", "done", false, []string{"db"})

		rec := component.ToRecord(task)
		Expect(rec.Type).To(Equal(component.TypeTask))
		Expect(rec.Success).NotTo(BeNil())
		Expect(*rec.Success).To(BeFalse())

		back, err := component.FromRecord(rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(back.Render()).To(Equal(task.Render()))
		Expect(back.BaseWeight()).To(Equal(task.BaseWeight()))
	})

	It("carries goal progress through metadata", func() {
		g := &component.GoalNote{GoalID: "g1", Description: "ship", Priority: 2, Progress: 0.5}

		rec := component.ToRecord(g)
		back, err := component.FromRecord(rec)
		Expect(err).NotTo(HaveOccurred())

		note, ok := back.(*component.GoalNote)
		Expect(ok).To(BeTrue())
		Expect(note.Progress).To(BeNumerically("~", 0.5, 1e-6))
	})

	It("fails on unknown record types", func() {
		_, err := component.FromRecord(component.Record{ID: "x", Type: "mystery"})
		Expect(err).To(HaveOccurred())
	})
})
