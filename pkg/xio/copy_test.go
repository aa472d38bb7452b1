package xio_test

import (
	"context"
	"strings"

	. "github.com/canirun/canirun/pkg/xio"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReadAll", func() {
	It("reads up to the limit", func() {
		b, err := ReadAll(context.Background(), strings.NewReader("hello"), 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("hello"))
	})

	It("fails past the limit", func() {
		_, err := ReadAll(context.Background(), strings.NewReader("hello!"), 5)
		Expect(err).To(MatchError(ErrTooLarge))
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ReadAll(ctx, strings.NewReader("hello"), 5)
		Expect(err).To(MatchError(context.Canceled))
	})
})
