package remotequery_test

import (
	"flag"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/nrfta/remotequery-go"
)

var _ = Describe("Config", func() {
	It("has sensible defaults", func() {
		cfg := remotequery.NewConfig()

		Expect(cfg.ChunkSize).To(Equal(500))
		Expect(cfg.StreamThreshold).To(Equal(2))
		Expect(cfg.MaxRecordsExamined).To(Equal(0))
		Expect(cfg.DefaultColumns).To(Equal([]string{"Id", "Name", "ParentId", "Type", "Status"}))
		Expect(cfg.KeyColumns).To(Equal([]string{"Id"}))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("does not share the default column slices", func() {
		cfg := remotequery.NewConfig()
		cfg.DefaultColumns[0] = "Changed"

		Expect(remotequery.DefaultColumns[0]).To(Equal("Id"))
	})

	It("ignores invalid values in setters", func() {
		cfg := remotequery.NewConfig().
			WithChunkSize(0).
			WithStreamThreshold(-1).
			WithMaxRecordsExamined(-5)

		Expect(cfg.ChunkSize).To(Equal(500))
		Expect(cfg.StreamThreshold).To(Equal(2))
		Expect(cfg.MaxRecordsExamined).To(Equal(0))
	})

	It("chains setters", func() {
		cfg := remotequery.NewConfig().
			WithChunkSize(100).
			WithStreamThreshold(3).
			WithMaxRecordsExamined(10000).
			WithDefaultColumns("Id", "Name")

		Expect(cfg.ChunkSize).To(Equal(100))
		Expect(cfg.StreamThreshold).To(Equal(3))
		Expect(cfg.MaxRecordsExamined).To(Equal(10000))
		Expect(cfg.DefaultColumns).To(Equal([]string{"Id", "Name"}))
	})

	It("loads from YAML on top of the defaults", func() {
		cfg := remotequery.NewConfig()
		err := yaml.Unmarshal([]byte(`
chunk_size: 250
max_records_examined: 5000
default_columns: [Id, Name, Status]
`), cfg)
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.ChunkSize).To(Equal(250))
		Expect(cfg.StreamThreshold).To(Equal(2))
		Expect(cfg.MaxRecordsExamined).To(Equal(5000))
		Expect(cfg.DefaultColumns).To(Equal([]string{"Id", "Name", "Status"}))
		Expect(cfg.KeyColumns).To(Equal([]string{"Id"}))
	})

	It("registers flags with a prefix", func() {
		cfg := &remotequery.Config{}
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg.RegisterFlagsWithPrefix("rq.", fs)

		Expect(fs.Parse([]string{
			"-rq.chunk-size=100",
			"-rq.default-columns=Id, Name,,Status",
			"-rq.max-records-examined=900",
		})).To(Succeed())

		Expect(cfg.ChunkSize).To(Equal(100))
		Expect(cfg.StreamThreshold).To(Equal(2))
		Expect(cfg.MaxRecordsExamined).To(Equal(900))
		Expect(cfg.DefaultColumns).To(Equal([]string{"Id", "Name", "Status"}))
		Expect(cfg.KeyColumns).To(Equal([]string{"Id"}))
	})

	DescribeTable("Validate",
		func(mutate func(*remotequery.Config), msg string) {
			cfg := remotequery.NewConfig()
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(msg)))
		},
		Entry("chunk size", func(c *remotequery.Config) { c.ChunkSize = 0 }, "chunk_size must be positive"),
		Entry("stream threshold", func(c *remotequery.Config) { c.StreamThreshold = -1 }, "stream_threshold must be positive"),
		Entry("max records", func(c *remotequery.Config) { c.MaxRecordsExamined = -1 }, "max_records_examined must not be negative"),
		Entry("default columns", func(c *remotequery.Config) { c.DefaultColumns = nil }, "default_columns must not be empty"),
	)

	It("falls back to defaults for a nil config", func() {
		var cfg *remotequery.Config

		Expect(cfg.EffectiveChunkSize()).To(Equal(remotequery.DefaultChunkSize))
		Expect(cfg.EffectiveStreamThreshold()).To(Equal(remotequery.DefaultStreamThreshold))
	})
})
