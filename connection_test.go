package remotequery_test

import (
	"fmt"

	"github.com/friendsofgo/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/offset"
)

type sensor struct {
	ID   int
	Name string
}

func toSensor(r remotequery.Record) (*sensor, error) {
	id, ok := r["Id"].(int)
	if !ok {
		return nil, errors.New("missing id")
	}
	name, _ := r["Name"].(string)
	return &sensor{ID: id, Name: name}, nil
}

func sensorRecords(ids ...int) []remotequery.Record {
	records := make([]remotequery.Record, len(ids))
	for i, id := range ids {
		records[i] = remotequery.Record{"Id": id, "Name": fmt.Sprintf("sensor-%d", id)}
	}
	return records
}

var _ = Describe("BuildConnection", func() {
	It("builds edges and nodes in result order", func() {
		total := 12
		res := &remotequery.Result{
			Records:  sensorRecords(7, 8, 9),
			PageInfo: remotequery.NewResultPageInfo(4, 3, &total, true),
		}

		conn, err := remotequery.BuildConnection(res, 4, toSensor)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn.Nodes).To(HaveLen(3))
		Expect(conn.Edges).To(HaveLen(3))

		for i, edge := range conn.Edges {
			Expect(edge.Node).To(Equal(conn.Nodes[i]))
			Expect(edge.Cursor).To(Equal(*offset.EncodeCursor(4 + i + 1)))
		}
		Expect(conn.Nodes[0].ID).To(Equal(7))
		Expect(conn.Nodes[2].Name).To(Equal("sensor-9"))
	})

	It("lets an edge cursor resume right after its node", func() {
		res := &remotequery.Result{Records: sensorRecords(1, 2)}

		conn, err := remotequery.BuildConnection(res, 10, toSensor)
		Expect(err).ToNot(HaveOccurred())

		cursor := conn.Edges[1].Cursor
		Expect(offset.DecodeCursor(&cursor)).To(Equal(12))
	})

	It("carries the result page info", func() {
		total := 3
		res := &remotequery.Result{
			Records:  sensorRecords(1, 2, 3),
			PageInfo: remotequery.NewResultPageInfo(0, 3, &total, false),
		}

		conn, err := remotequery.BuildConnection(res, 0, toSensor)
		Expect(err).ToNot(HaveOccurred())

		count, _ := conn.PageInfo.TotalCount()
		Expect(*count).To(Equal(3))
		hasNext, _ := conn.PageInfo.HasNextPage()
		Expect(hasNext).To(BeFalse())
	})

	It("handles an empty result", func() {
		res := &remotequery.Result{Records: []remotequery.Record{}, PageInfo: remotequery.NewEmptyPageInfo()}

		conn, err := remotequery.BuildConnection(res, 0, toSensor)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn.Nodes).To(BeEmpty())
		Expect(conn.Edges).To(BeEmpty())
	})

	It("wraps transform errors with the record index", func() {
		res := &remotequery.Result{Records: []remotequery.Record{
			{"Id": 1},
			{"Name": "orphan"},
		}}

		conn, err := remotequery.BuildConnection(res, 0, toSensor)
		Expect(conn).To(BeNil())
		Expect(err).To(MatchError(ContainSubstring("transform record at index 1")))
		Expect(err).To(MatchError(ContainSubstring("missing id")))
	})
})

var _ = Describe("PageInfo", func() {
	It("describes a result window", func() {
		total := 40
		pi := remotequery.NewResultPageInfo(10, 5, &total, true)

		start, _ := pi.StartCursor()
		Expect(offset.DecodeCursor(start)).To(Equal(10))
		end, _ := pi.EndCursor()
		Expect(offset.DecodeCursor(end)).To(Equal(15))

		prev, _ := pi.HasPreviousPage()
		Expect(prev).To(BeTrue())
		next, _ := pi.HasNextPage()
		Expect(next).To(BeTrue())
		count, _ := pi.TotalCount()
		Expect(*count).To(Equal(40))
	})

	It("reports no previous page at offset zero", func() {
		pi := remotequery.NewResultPageInfo(0, 5, nil, false)

		prev, _ := pi.HasPreviousPage()
		Expect(prev).To(BeFalse())
		count, _ := pi.TotalCount()
		Expect(count).To(BeNil())
	})

	It("is empty for short-circuited results", func() {
		pi := remotequery.NewEmptyPageInfo()

		count, _ := pi.TotalCount()
		Expect(*count).To(Equal(0))
		start, _ := pi.StartCursor()
		Expect(start).To(BeNil())
		end, _ := pi.EndCursor()
		Expect(end).To(BeNil())
		next, _ := pi.HasNextPage()
		Expect(next).To(BeFalse())
	})
})
