package summarize_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quiltmem/quilt/pkg/summarize"
	"github.com/quiltmem/quilt/pkg/tokens"
)

var _ = Describe("Naive", func() {
	var naive *summarize.Naive

	BeforeEach(func() {
		naive = summarize.NewNaive()
	})

	It("passes text already under budget through untouched", func() {
		out, err := naive.Summarize(context.Background(), "short text", 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("short text"))
	})

	It("keeps the result within the token budget", func() {
		text := strings.Repeat("x", 1200)
		out, err := naive.Summarize(context.Background(), text, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeEmpty())
		Expect(tokens.Estimate(out)).To(BeNumerically("<=", 100))
	})

	It("cuts on line boundaries when it can", func() {
		text := "first line\nsecond line\n" + strings.Repeat("z", 500)
		out, err := naive.Summarize(context.Background(), text, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("first line"))
		Expect(out).To(HaveSuffix("..."))
	})

	It("is deterministic", func() {
		text := strings.Repeat("abc def ghi\n", 100)
		first, err := naive.Summarize(context.Background(), text, 40)
		Expect(err).NotTo(HaveOccurred())
		second, err := naive.Summarize(context.Background(), text, 40)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("degrades to a bare marker on tiny budgets", func() {
		out, err := naive.Summarize(context.Background(), strings.Repeat("y", 100), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("..."))
	})

	It("reports naive mode", func() {
		status := naive.Status()
		Expect(status.Mode).To(Equal(summarize.ModeNaive))
		Expect(status.Availability).To(Equal(summarize.AvailabilityAvailable))
	})
})
