package remotetest

import (
	"fmt"

	"github.com/nrfta/remotequery-go"
)

// Sensors returns n sensor records with ids 1..n. name returns the Name of
// the record with the given id; nil names them "sensor-<id>".
func Sensors(n int, name func(id int) string) []remotequery.Record {
	if name == nil {
		name = func(id int) string { return fmt.Sprintf("sensor-%d", id) }
	}

	records := make([]remotequery.Record, n)
	for i := range records {
		id := i + 1
		status := "Up"
		if id%3 == 0 {
			status = "Down"
		}
		records[i] = remotequery.Record{
			"Id":       id,
			"Name":     name(id),
			"ParentId": 1000 + id%7,
			"Type":     "sensor",
			"Status":   status,
			"Priority": id % 5,
		}
	}
	return records
}

// IDs returns the Id of every record.
func IDs(records []remotequery.Record) []int {
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i], _ = r["Id"].(int)
	}
	return ids
}
