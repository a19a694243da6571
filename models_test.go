package remotequery_test

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/remotequery-go"
)

var _ = Describe("Condition", func() {
	DescribeTable("SerializedValue",
		func(value any, want string) {
			c := remotequery.Condition{Property: "X", Value: value}
			Expect(c.SerializedValue()).To(Equal(want))
		},
		Entry("nil", nil, ""),
		Entry("string", "ping", "ping"),
		Entry("bool", true, "true"),
		Entry("int", 42, "42"),
		Entry("time in UTC", time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)), "2024-03-01T11:00:00Z"),
		Entry("stringer", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), "6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
	)

	It("renders a readable form", func() {
		c := remotequery.Condition{Property: "Name", Operator: remotequery.Contains, Value: "ping"}
		Expect(c.String()).To(Equal(`Name contains "ping"`))
	})

	It("names unknown operators", func() {
		Expect(remotequery.Operator(9).String()).To(Equal("operator(9)"))
	})
})

var _ = Describe("Descriptor", func() {
	d := remotequery.Descriptor{
		Conditions: []remotequery.Condition{{Property: "Status", Operator: remotequery.Equals, Value: "Up"}},
		Sort:       &remotequery.Sort{Property: "Name", Desc: true},
		Columns:    []string{"Id", "Name"},
	}

	It("reports whether it carries conditions", func() {
		Expect(d.Filtered()).To(BeTrue())
		Expect(remotequery.Descriptor{Sort: d.Sort}.Filtered()).To(BeFalse())
	})

	It("cuts filtered pages", func() {
		req := d.Page(20, 10)

		Expect(req.Filtered()).To(BeTrue())
		Expect(req.Sort.String()).To(Equal("Name DESC"))
		Expect(req.Columns).To(Equal([]string{"Id", "Name"}))
		Expect(req.Start).To(Equal(20))
		Expect(req.Count).To(Equal(10))
	})

	It("cuts unfiltered pages keeping the sort", func() {
		req := d.Unfiltered(0, 500)

		Expect(req.Filtered()).To(BeFalse())
		Expect(req.Sort).To(Equal(d.Sort))
		Expect(req.Count).To(Equal(500))
	})
})

var _ = Describe("Errors", func() {
	It("matches unsupported expressions by sentinel", func() {
		err := errors.Wrap(&remotequery.UnsupportedExpressionError{Kind: "filter", Reason: "after take"}, "plan")

		Expect(errors.Is(err, remotequery.ErrUnsupportedExpression)).To(BeTrue())
		Expect(err.Error()).To(Equal("plan: unsupported expression: filter: after take"))

		var target *remotequery.UnsupportedExpressionError
		Expect(errors.As(err, &target)).To(BeTrue())
		Expect(target.Kind).To(Equal("filter"))
	})

	It("omits an empty reason", func() {
		err := &remotequery.UnsupportedExpressionError{Kind: "opaque"}
		Expect(err.Error()).To(Equal("unsupported expression: opaque"))
	})

	It("matches out of range arguments by sentinel", func() {
		err := &remotequery.ArgumentOutOfRangeError{Param: "skip", Value: -2}

		Expect(errors.Is(err, remotequery.ErrArgumentOutOfRange)).To(BeTrue())
		Expect(errors.Is(err, remotequery.ErrUnsupportedExpression)).To(BeFalse())
		Expect(err.Error()).To(Equal("argument skip is out of range: -2 must be non-negative"))
	})
})

var _ = Describe("FetcherFuncs", func() {
	It("delegates to its functions", func() {
		var got remotequery.Request
		var f remotequery.Fetcher = remotequery.FetcherFuncs{
			Page: func(_ context.Context, req remotequery.Request) (remotequery.PageResult, error) {
				got = req
				return remotequery.PageResult{ReportedTotal: 7}, nil
			},
			Count: func(_ context.Context, columns []string) (int, error) {
				return len(columns), nil
			},
		}

		res, err := f.FetchPage(context.Background(), remotequery.Request{Start: 3})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.ReportedTotal).To(Equal(7))
		Expect(got.Start).To(Equal(3))

		n, err := f.FetchCount(context.Background(), []string{"Id", "Name"})
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(2))
	})
})
