package xsync_test

import (
	. "github.com/canirun/canirun/pkg/xsync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SyncedMap", func() {
	It("sets and gets", func() {
		m := NewSyncedMap[string, string]()
		m.Set("foo", "bar")
		v, ok := m.Load("foo")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("bar"))
		v, ok = m.Load("missing")
		Expect(ok).To(BeFalse())
		Expect(v).To(BeEmpty())
	})

	It("deletes", func() {
		m := NewSyncedMap[string, string]()
		m.Set("foo", "bar")
		m.Delete("foo")
		_, ok := m.Load("foo")
		Expect(ok).To(BeFalse())
	})

	It("deletes only when the predicate holds", func() {
		m := NewSyncedMap[string, int]()
		m.Set("a", 1)
		Expect(m.DeleteIf("a", func(v int) bool { return v > 1 })).To(BeFalse())
		Expect(m.DeleteIf("a", func(v int) bool { return v == 1 })).To(BeTrue())
		Expect(m.DeleteIf("a", func(int) bool { return true })).To(BeFalse())
		Expect(m.Len()).To(BeZero())
	})

	It("clears", func() {
		m := NewSyncedMap[int, int]()
		m.Set(1, 1)
		m.Set(2, 2)
		Expect(m.Len()).To(Equal(2))
		m.Clear()
		Expect(m.Len()).To(BeZero())
	})
})
