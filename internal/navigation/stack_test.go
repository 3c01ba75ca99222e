// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package navigation_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/widgetdeck/widgetdeck/internal/navigation"
)

func ids(entries []navigation.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func visit(s *navigation.Stack, id ...string) {
	for _, v := range id {
		s.SetPath(&navigation.Entry{ID: v})
	}
}

var _ = Describe("Stack", func() {
	var stack *navigation.Stack

	BeforeEach(func() {
		stack = navigation.NewStack()
	})

	It("starts empty", func() {
		Expect(stack.Paths()).To(BeEmpty())
		Expect(stack.Len()).To(Equal(0))
	})

	Describe("SetPath", func() {
		It("appends unseen entries in visit order", func() {
			stack.SetPath(&navigation.Entry{ID: "a"})
			Expect(ids(stack.Paths())).To(Equal([]string{"a"}))
			stack.SetPath(&navigation.Entry{ID: "b"})
			Expect(ids(stack.Paths())).To(Equal([]string{"a", "b"}))
			stack.SetPath(&navigation.Entry{ID: "c"})
			Expect(ids(stack.Paths())).To(Equal([]string{"a", "b", "c"}))
		})

		It("truncates back to a revisited ancestor without duplicating it", func() {
			visit(stack, "a", "b", "c")

			stack.SetPath(&navigation.Entry{ID: "b"})

			Expect(ids(stack.Paths())).To(Equal([]string{"a", "b"}))
		})

		It("truncates to the root when the root is revisited", func() {
			visit(stack, "a", "b", "c", "d")

			stack.SetPath(&navigation.Entry{ID: "a"})

			Expect(ids(stack.Paths())).To(Equal([]string{"a"}))
		})

		It("leaves the stack alone when the head is revisited", func() {
			visit(stack, "a")

			stack.SetPath(&navigation.Entry{ID: "a"})

			Expect(ids(stack.Paths())).To(Equal([]string{"a"}))
		})

		It("appends a sibling with a new id instead of replacing the tail", func() {
			visit(stack, "a", "b")

			stack.SetPath(&navigation.Entry{ID: "b2"})

			Expect(ids(stack.Paths())).To(Equal([]string{"a", "b", "b2"}))
		})

		It("keeps the metadata of the entry first visited", func() {
			stack.SetPath(&navigation.Entry{ID: "a", Metadata: map[string]any{"title": "Home"}})
			visit(stack, "b")

			stack.SetPath(&navigation.Entry{ID: "a", Metadata: map[string]any{"title": "Other"}})

			Expect(stack.Paths()).To(HaveLen(1))
			Expect(stack.Paths()[0].Metadata).To(HaveKeyWithValue("title", "Home"))
		})

		DescribeTable("ignores invalid entries",
			func(entry *navigation.Entry) {
				visit(stack, "a", "b")
				stack.SetPath(entry)
				Expect(ids(stack.Paths())).To(Equal([]string{"a", "b"}))
			},
			Entry("nil entry", nil),
			Entry("empty id", &navigation.Entry{}),
		)
	})

	Describe("ClearPaths", func() {
		It("empties any stack and accepts new visits afterwards", func() {
			visit(stack, "a", "b", "c")

			stack.ClearPaths()
			Expect(stack.Paths()).To(BeEmpty())

			stack.SetPath(&navigation.Entry{ID: "x"})
			Expect(ids(stack.Paths())).To(Equal([]string{"x"}))
		})

		It("is a no-op on an empty stack", func() {
			stack.ClearPaths()
			stack.ClearPaths()
			Expect(stack.Len()).To(Equal(0))
		})
	})

	Describe("Paths", func() {
		It("returns a copy callers cannot use to mutate the stack", func() {
			stack.SetPath(&navigation.Entry{ID: "a", Metadata: map[string]any{"title": "Home"}})

			paths := stack.Paths()
			paths[0].ID = "z"
			paths[0].Metadata["title"] = "changed"

			Expect(stack.Paths()[0].ID).To(Equal("a"))
			Expect(stack.Paths()[0].Metadata).To(HaveKeyWithValue("title", "Home"))
		})

		It("is not affected by later changes to the caller's entry", func() {
			entry := &navigation.Entry{ID: "a", Metadata: map[string]any{"title": "Home"}}
			stack.SetPath(entry)

			entry.ID = "z"
			entry.Metadata["title"] = "changed"

			Expect(stack.Paths()[0].ID).To(Equal("a"))
			Expect(stack.Paths()[0].Metadata).To(HaveKeyWithValue("title", "Home"))
		})
	})

	Describe("Subscribe", func() {
		It("reports every transition that changes the stack", func() {
			var seen [][]string
			stack.Subscribe(func(paths []navigation.Entry) {
				seen = append(seen, ids(paths))
			})

			visit(stack, "a", "b", "c")
			stack.SetPath(&navigation.Entry{ID: "c"})
			stack.SetPath(&navigation.Entry{ID: "a"})
			stack.ClearPaths()

			Expect(seen).To(Equal([][]string{
				{"a"},
				{"a", "b"},
				{"a", "b", "c"},
				{"a"},
				{},
			}))
		})

		It("stops after unsubscribe", func() {
			calls := 0
			unsubscribe := stack.Subscribe(func([]navigation.Entry) { calls++ })

			visit(stack, "a")
			unsubscribe()
			visit(stack, "b")

			Expect(calls).To(Equal(1))
		})

		It("lets observers read the stack", func() {
			var depth int
			stack.Subscribe(func([]navigation.Entry) { depth = stack.Len() })

			visit(stack, "a", "b")

			Expect(depth).To(Equal(2))
		})
	})

	It("stays a prefix-preserving path under concurrent use", func() {
		visit(stack, "root")

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Go(func() {
				for j := range 50 {
					if (i+j)%7 == 0 {
						stack.SetPath(&navigation.Entry{ID: "root"})
						continue
					}
					stack.SetPath(&navigation.Entry{ID: string(rune('a' + (i+j)%12))})
				}
			})
		}
		wg.Wait()

		paths := ids(stack.Paths())
		Expect(paths).NotTo(BeEmpty())
		Expect(paths[0]).To(Equal("root"))
		seen := make(map[string]bool, len(paths))
		for _, id := range paths {
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
	})
})
