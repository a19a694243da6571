package sqlboiler_test

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/friendsofgo/errors"
	_ "github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/engine"
	"github.com/nrfta/remotequery-go/expr"
	"github.com/nrfta/remotequery-go/internal/remotetest"
	"github.com/nrfta/remotequery-go/sqlboiler"
)

// startPostgres starts a PostgreSQL container and connects to it. A missing
// container runtime is reported as an error.
func startPostgres(ctx context.Context) (pg *postgres.PostgresContainer, db *sql.DB, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("start postgres container: %v", r)
		}
	}()

	pg, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "start postgres container")
	}

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pg.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "get connection string")
	}

	db, err = sql.Open("postgres", connStr)
	if err != nil {
		pg.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "connect to database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		pg.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "ping database")
	}

	return pg, db, nil
}

func seedSensors(ctx context.Context, db *sql.DB, records []remotequery.Record) error {
	schema := `
		CREATE TABLE sensors (
			"Id" INTEGER PRIMARY KEY,
			"Name" TEXT NOT NULL,
			parent_id INTEGER,
			"Type" TEXT,
			"Status" TEXT,
			"Priority" INTEGER
		);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create sensors table")
	}

	for _, r := range records {
		_, err := db.ExecContext(ctx,
			`INSERT INTO sensors ("Id", "Name", parent_id, "Type", "Status", "Priority") VALUES ($1, $2, $3, $4, $5, $6)`,
			r["Id"], r["Name"], r["ParentId"], r["Type"], r["Status"], r["Priority"],
		)
		if err != nil {
			return errors.Wrapf(err, "seed sensor %v", r["Id"])
		}
	}
	return nil
}

func int64IDs(records []remotequery.Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i], _ = r["Id"].(int64)
	}
	return ids
}

var _ = Describe("Fetcher against PostgreSQL", Ordered, func() {
	var (
		ctx context.Context
		q   engine.Query
		f   *sqlboiler.Fetcher
	)

	BeforeAll(func() {
		ctx = context.Background()

		pg, db, err := startPostgres(ctx)
		if err != nil {
			Skip(fmt.Sprintf("postgres unavailable: %v", err))
		}
		DeferCleanup(func() {
			db.Close()
			Expect(pg.Terminate(context.Background())).To(Succeed())
		})

		records := remotetest.Sensors(300, func(id int) string {
			switch id {
			case 1:
				return "PINGER"
			case 2:
				return "Ping-x"
			case 150, 250:
				return fmt.Sprintf("ping-%d", id)
			default:
				return fmt.Sprintf("sensor-%d", id)
			}
		})
		Expect(seedSensors(ctx, db, records)).To(Succeed())

		f = sqlboiler.NewFetcher(db, "sensors",
			sqlboiler.WithColumnMap(map[string]string{"ParentId": "parent_id"}),
		)
		q = engine.New(f).Query()
	})

	It("reports the filtered total for filtered pages", func() {
		res, err := f.FetchPage(ctx, remotequery.Request{
			Conditions: []remotequery.Condition{{Property: "Name", Operator: remotequery.Contains, Value: "ping"}},
			Count:      2,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(int64IDs(res.Records)).To(Equal([]int64{1, 2}))
		Expect(res.ReportedTotal).To(Equal(4))
	})

	It("counts the whole table", func() {
		n, err := f.FetchCount(ctx, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(300))
	})

	It("re-verifies case-insensitive matches", func() {
		got, err := q.Where(expr.Member("Name").Contains("ping")).Take(2).ToSlice(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(int64IDs(got)).To(Equal([]int64{150, 250}))
	})

	It("pages with a server sort", func() {
		got, err := q.OrderByDescending(expr.Member("Id")).Skip(3).Take(2).ToSlice(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(int64IDs(got)).To(Equal([]int64{297, 296}))
	})

	It("filters mapped columns", func() {
		n, err := q.Count(ctx, expr.Member("ParentId").Eq(1003))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(43))

		n, err = q.Count(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(300))
	})

	It("verifies string inequality locally", func() {
		got, err := q.Where(expr.Member("Status").Ne("Up")).Take(3).ToSlice(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(int64IDs(got)).To(Equal([]int64{3, 6, 9}))
	})

	It("sends numeric inequality to the server", func() {
		got, err := q.Where(expr.Member("Priority").Ne(0)).Take(3).ToSlice(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(int64IDs(got)).To(Equal([]int64{1, 2, 3}))
	})
})
