// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package navigation_test

import (
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/widgetdeck/widgetdeck/internal/navigation"
)

var _ = Describe("Sessions", func() {
	var sessions *navigation.Sessions

	BeforeEach(func() {
		sessions = navigation.NewSessions()
	})

	It("gives every session its own empty stack", func() {
		first := sessions.Open()
		second := sessions.Open()
		Expect(first).NotTo(Equal(second))
		Expect(first.Compare(second)).To(Equal(-1), "ids are monotonic")

		a, ok := sessions.Get(first)
		Expect(ok).To(BeTrue())
		b, ok := sessions.Get(second)
		Expect(ok).To(BeTrue())

		visit(a, "x", "y")

		Expect(ids(a.Paths())).To(Equal([]string{"x", "y"}))
		Expect(b.Paths()).To(BeEmpty())
		Expect(sessions.Len()).To(Equal(2))
	})

	It("clears and forgets a stack when its session ends", func() {
		id := sessions.Open()
		stack, _ := sessions.Get(id)
		visit(stack, "x")

		Expect(sessions.End(id)).To(Succeed())

		Expect(stack.Len()).To(Equal(0))
		_, ok := sessions.Get(id)
		Expect(ok).To(BeFalse())
		Expect(sessions.Len()).To(Equal(0))
	})

	It("reports ending an unknown session", func() {
		err := sessions.End(ulid.Make())

		Expect(err).To(HaveOccurred())
		oopsErr, ok := oops.AsOops(err)
		Expect(ok).To(BeTrue())
		Expect(oopsErr.Code()).To(Equal(navigation.CodeSessionNotFound))
	})
})
