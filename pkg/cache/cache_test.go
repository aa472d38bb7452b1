package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/canirun/canirun/pkg/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type record struct {
	Name     string  `json:"name"`
	MemoryGB float64 `json:"memory_gb"`
}

var _ = Describe("Memory cache", func() {
	It("sets and gets", func() {
		c := NewMemory[record](time.Hour)
		c.Set("a", record{Name: "A", MemoryGB: 24})
		v, ok := c.Get("a")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(record{Name: "A", MemoryGB: 24}))
	})

	It("deletes and purges", func() {
		c := NewMemory[string](time.Hour)
		c.Set("a", "1")
		c.Set("b", "2")
		c.Delete("a")
		_, ok := c.Get("a")
		Expect(ok).To(BeFalse())
		Expect(c.Len()).To(Equal(1))

		c.Purge()
		Expect(c.Len()).To(BeZero())
	})

	It("evicts expired entries on read", func() {
		c := NewMemory[string](20 * time.Millisecond)
		c.Set("a", "1")
		Eventually(func() bool {
			_, ok := c.Get("a")
			return ok
		}).WithTimeout(time.Second).Should(BeFalse())
		Expect(c.Len()).To(BeZero())
	})

	It("never expires with a zero ttl", func() {
		c := NewMemory[string](0)
		c.Set("a", "1")
		time.Sleep(5 * time.Millisecond)
		_, ok := c.Get("a")
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("GetOrLoad", func() {
	It("loads once and serves from the cache afterwards", func() {
		c := NewMemory[int](time.Hour)
		calls := 0
		load := func() (int, error) {
			calls++
			return 42, nil
		}
		for range 3 {
			v, err := GetOrLoad[int](c, "k", load)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(42))
		}
		Expect(calls).To(Equal(1))
	})

	It("does not cache errors", func() {
		c := NewMemory[int](time.Hour)
		_, err := GetOrLoad[int](c, "k", func() (int, error) { return 0, errors.New("boom") })
		Expect(err).To(MatchError("boom"))
		_, ok := c.Get("k")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("File cache", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "cache", "accelerators.json")
	})

	It("persists entries across instances", func() {
		c, err := NewFile[record](path, time.Hour)
		Expect(err).ToNot(HaveOccurred())
		c.Set("rtx", record{Name: "RTX 4090", MemoryGB: 24})

		reopened, err := NewFile[record](path, time.Hour)
		Expect(err).ToNot(HaveOccurred())
		v, ok := reopened.Get("rtx")
		Expect(ok).To(BeTrue())
		Expect(v.Name).To(Equal("RTX 4090"))

		_, err = os.Stat(path)
		Expect(err).ToNot(HaveOccurred())
	})

	It("sees writes made by another instance", func() {
		a, err := NewFile[string](path, time.Hour)
		Expect(err).ToNot(HaveOccurred())
		b, err := NewFile[string](path, time.Hour)
		Expect(err).ToNot(HaveOccurred())

		a.Set("k", "v")
		v, ok := b.Get("k")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("v"))

		b.Delete("k")
		_, ok = a.Get("k")
		Expect(ok).To(BeFalse())
	})

	It("expires entries", func() {
		c, err := NewFile[string](path, 20*time.Millisecond)
		Expect(err).ToNot(HaveOccurred())
		c.Set("k", "v")
		Eventually(func() bool {
			_, ok := c.Get("k")
			return ok
		}).WithTimeout(time.Second).Should(BeFalse())
	})

	It("purges everything", func() {
		c, err := NewFile[string](path, time.Hour)
		Expect(err).ToNot(HaveOccurred())
		c.Set("a", "1")
		c.Set("b", "2")
		c.Purge()
		_, ok := c.Get("a")
		Expect(ok).To(BeFalse())
	})

	It("reports a corrupt file", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
		Expect(os.WriteFile(path, []byte("{not json"), 0o600)).To(Succeed())
		_, err := NewFile[string](path, time.Hour)
		Expect(err).To(HaveOccurred())
	})
})
