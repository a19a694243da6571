package sqlboiler_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/sqlboiler"
)

var _ = Describe("RequestToQueryMods", func() {
	Describe("Basic Functionality", func() {
		It("should return empty mods for an empty request", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{})

			Expect(mods).To(HaveLen(0))
		})

		It("should add a SELECT mod for columns", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{Columns: []string{"Id", "Name"}})

			Expect(mods).To(HaveLen(1))
			Expect(modTypeName(mods[0])).To(Equal("qm.selectQueryMod"))
		})

		It("should add one WHERE mod per condition", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{
				Conditions: []remotequery.Condition{
					{Property: "Name", Operator: remotequery.Contains, Value: "ping"},
					{Property: "Status", Operator: remotequery.Equals, Value: "Up"},
				},
			})

			Expect(mods).To(HaveLen(2))
			Expect(modTypeName(mods[0])).To(whereModMatcher())
			Expect(modTypeName(mods[1])).To(whereModMatcher())
		})

		It("should combine all mods together", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{
				Columns:    []string{"Id"},
				Conditions: []remotequery.Condition{{Property: "Status", Operator: remotequery.Equals, Value: "Up"}},
				Sort:       &remotequery.Sort{Property: "Name", Desc: true},
				Start:      20,
				Count:      10,
			})

			names := modTypeNames(mods)
			Expect(names).To(HaveLen(5))
			Expect(names[0]).To(Equal("qm.selectQueryMod"))
			Expect(names[1]).To(whereModMatcher())
			Expect(names[2:]).To(Equal([]string{"qm.offsetQueryMod", "qm.limitQueryMod", "qm.orderByQueryMod"}))
		})
	})

	Describe("Edge Cases", func() {
		It("should skip OFFSET when start is 0", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{Count: 10})

			Expect(mods).To(HaveLen(1))
			Expect(modTypeName(mods[0])).To(Equal("qm.limitQueryMod"))
		})

		It("should skip LIMIT when count is 0", func() {
			mods := sqlboiler.RequestToQueryMods(remotequery.Request{Start: 20})

			Expect(mods).To(HaveLen(1))
			Expect(modTypeName(mods[0])).To(Equal("qm.offsetQueryMod"))
		})
	})
})

var _ = Describe("Fetcher queries", func() {
	var fetcher *sqlboiler.Fetcher

	BeforeEach(func() {
		fetcher = sqlboiler.NewFetcher(nil, "sensors",
			sqlboiler.WithColumnMap(map[string]string{"ParentId": "parent_id"}),
		)
	})

	It("renders conditions as placeholders", func() {
		query, args := fetcher.PageSQL(remotequery.Request{
			Conditions: []remotequery.Condition{
				{Property: "Name", Operator: remotequery.Contains, Value: "50%_x"},
				{Property: "Status", Operator: remotequery.NotEquals, Value: "Up"},
				{Property: "Name", Operator: remotequery.GreaterThan, Value: "m"},
				{Property: "Priority", Operator: remotequery.LessThan, Value: 3},
				{Property: "ParentId", Operator: remotequery.Equals, Value: 1003},
			},
		})

		Expect(query).To(ContainSubstring(`CAST("Name" AS TEXT) ILIKE $1`))
		Expect(query).To(ContainSubstring(`"Status" IS DISTINCT FROM $2`))
		Expect(query).To(ContainSubstring(`"Name" COLLATE "C" > $3`))
		Expect(query).To(ContainSubstring(`"Priority" < $4`))
		Expect(query).To(ContainSubstring(`"parent_id" = $5`))
		Expect(args).To(Equal([]any{`%50\%\_x%`, "Up", "m", 3, 1003}))
	})

	It("maps selected columns back to properties", func() {
		query, _ := fetcher.PageSQL(remotequery.Request{Columns: []string{"Id", "ParentId"}})

		Expect(query).To(ContainSubstring(`"Id"`))
		Expect(query).To(ContainSubstring(`"parent_id" AS "ParentId"`))
	})

	It("orders by the key column without a sort", func() {
		query, _ := fetcher.PageSQL(remotequery.Request{Start: 5, Count: 3})

		Expect(query).To(ContainSubstring(`ORDER BY "Id"`))
		Expect(query).To(ContainSubstring("LIMIT 3"))
		Expect(query).To(ContainSubstring("OFFSET 5"))
	})

	It("orders by the requested sort", func() {
		query, _ := fetcher.PageSQL(remotequery.Request{Sort: &remotequery.Sort{Property: "ParentId", Desc: true}})

		Expect(query).To(ContainSubstring(`ORDER BY "parent_id" DESC`))
	})

	It("counts without paging", func() {
		query, args := fetcher.CountSQL([]remotequery.Condition{
			{Property: "Status", Operator: remotequery.Equals, Value: "Down"},
		})

		Expect(query).To(ContainSubstring("COUNT(*)"))
		Expect(query).To(ContainSubstring(`"Status" = $1`))
		Expect(query).ToNot(ContainSubstring("LIMIT"))
		Expect(query).ToNot(ContainSubstring("ORDER BY"))
		Expect(args).To(Equal([]any{"Down"}))
	})
})
