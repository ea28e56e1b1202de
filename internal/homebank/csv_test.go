package homebank

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GenerateCSV", func() {
	var (
		rows []CSVRow
		out  string
		err  error
	)

	JustBeforeEach(func() {
		out, err = GenerateCSV(rows)
	})

	When("rendering an expense and an income", func() {
		BeforeEach(func() {
			rows = []CSVRow{
				{
					Date:     "2024-05-12",
					Payee:    "Test Shop",
					Memo:     "[14:32] coffee",
					Amount:   25.99,
					Expense:  true,
					Category: "Food:Dining",
					Tags:     []string{"coffee", "mobile-import"},
				},
				{
					Date:    "2024-05-13",
					Payee:   "Employer",
					Memo:    "refund",
					Amount:  10,
					Expense: false,
				},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should write the header first", func() {
			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			Expect(lines[0]).To(Equal("date;mode;info;payee;memo;amount;category;tags"))
			Expect(lines).To(HaveLen(3))
		})

		It("should negate the expense and keep the income positive", func() {
			Expect(out).To(ContainSubstring("2024-05-12;0;;Test Shop;[14:32] coffee;-25.99;Food:Dining;coffee mobile-import"))
			Expect(out).To(ContainSubstring("2024-05-13;0;;Employer;refund;10.00;;"))
		})
	})

	When("an amount arrives already negative", func() {
		BeforeEach(func() {
			rows = []CSVRow{{Date: "2024-05-12", Amount: -5.50, Expense: true}}
		})

		It("should not double-negate", func() {
			Expect(out).To(ContainSubstring(";-5.50;"))
		})
	})

	When("fields contain the separator or line breaks", func() {
		BeforeEach(func() {
			rows = []CSVRow{{
				Date:  "2024-05-12",
				Payee: "Fish;Chips",
				Memo:  "line one\nline two",
			}}
		})

		It("should sanitize them instead of quoting", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Fish,Chips"))
			Expect(out).To(ContainSubstring("line one line two"))
			Expect(out).NotTo(ContainSubstring(`"`))
		})
	})

	When("there are no rows", func() {
		BeforeEach(func() {
			rows = nil
		})

		It("should emit only the header", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("date;mode;info;payee;memo;amount;category;tags\n"))
		})
	})
})
