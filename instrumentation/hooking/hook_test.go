package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	n int
}

func (h *countingHook) Func(ctx HookCtx) {
	h.n++
}

var _ = Describe("HookableBase", func() {
	var base *HookableBase

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke hooks in order", func() {
		order := []string{}
		base.AcceptHook(HookFunc(func(ctx HookCtx) {
			order = append(order, "a:"+ctx.Pos.Name)
		}))
		base.AcceptHook(HookFunc(func(ctx HookCtx) {
			order = append(order, "b:"+ctx.Pos.Name)
		}))

		base.InvokeHook(HookCtx{Pos: &HookPos{Name: "P"}})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]string{"a:P", "b:P"}))
	})

	It("should reject duplicated hooks", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
		Expect(base.Hooks()).To(HaveLen(1))
	})
})
