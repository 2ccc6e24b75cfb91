package mock_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quiltmem/quilt/pkg/embeddings/mock"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ = Describe("Embedder", func() {
	embedder := mock.NewEmbedder(64)

	It("is deterministic", func() {
		first, err := embedder.Embed(context.Background(), "database performance tuning")
		Expect(err).NotTo(HaveOccurred())
		second, err := embedder.Embed(context.Background(), "database performance tuning")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("produces unit vectors of the configured width", func() {
		vec, err := embedder.Embed(context.Background(), "some text")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(64))

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		Expect(norm).To(BeNumerically("~", 1.0, 1e-5))
	})

	It("places texts sharing words closer than unrelated texts", func() {
		query, _ := embedder.Embed(context.Background(), "database performance")
		related, _ := embedder.Embed(context.Background(), "database performance tuning and indexing")
		unrelated, _ := embedder.Embed(context.Background(), "gardening tips for spring flowers")

		Expect(cosine(query, related)).To(BeNumerically(">", cosine(query, unrelated)))
	})

	It("defaults the width when zero is given", func() {
		Expect(mock.NewEmbedder(0).Dimensions()).To(BeNumerically(">", 0))
	})
})
