package transaction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FormatMemo", func() {
	When("every part is present", func() {
		It("joins them in fixed order", func() {
			memo := FormatMemo(MemoParts{
				Time:    "14:32",
				Method:  "VISA",
				Summary: "coffee, muffin",
				Notes:   "client meeting",
			})
			Expect(memo).To(Equal("[14:32] [VISA] coffee, muffin client meeting"))
		})
	})

	When("no method was extracted", func() {
		It("falls back to the configured default", func() {
			memo := FormatMemo(MemoParts{
				Time:          "14:32",
				Summary:       "coffee",
				DefaultMethod: "EFTPOS",
			})
			Expect(memo).To(Equal("[14:32] [EFTPOS] coffee"))
		})
	})

	When("an extracted method is present", func() {
		It("wins over the default", func() {
			memo := FormatMemo(MemoParts{
				Method:        "CASH",
				DefaultMethod: "EFTPOS",
			})
			Expect(memo).To(Equal("[CASH]"))
		})
	})

	When("parts are missing", func() {
		It("omits them without extra spaces", func() {
			memo := FormatMemo(MemoParts{
				Time:  "09:05",
				Notes: "lunch",
			})
			Expect(memo).To(Equal("[09:05] lunch"))
		})
	})

	When("nothing is present", func() {
		It("returns an empty string", func() {
			Expect(FormatMemo(MemoParts{})).To(BeEmpty())
		})
	})

	It("is deterministic for identical inputs", func() {
		parts := MemoParts{Time: "14:32", Method: "VISA", Summary: "coffee"}
		Expect(FormatMemo(parts)).To(Equal(FormatMemo(parts)))
	})
})
