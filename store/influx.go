package store

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	api "github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// InfluxConfig represents an influxdb config
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Influx represents an influxdb that we can write scrape metrics to
type Influx struct {
	config   InfluxConfig
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInflux creates an influx helper client
func NewInflux(config *InfluxConfig) *Influx {
	client := influxdb2.NewClient(config.URL, config.Token)
	return &Influx{
		config:   *config,
		client:   client,
		writeAPI: client.WriteAPI(config.Org, config.Bucket),
	}
}

// WriteResult records one scrape outcome. Writes are batched and
// flushed by the influx client in the background.
func (i *Influx) WriteResult(res data.ScrapeResult) {
	ts := res.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	p := influxdb2.NewPoint("scrapes",
		map[string]string{
			"platform": res.Request.Platform,
			"worker":   res.Worker,
			"cached":   strconv.FormatBool(res.Cached),
			"success":  strconv.FormatBool(res.OK()),
		},
		map[string]interface{}{
			"elapsedMs": res.ElapsedMs,
			"username":  res.Request.Username,
		},
		ts)
	i.writeAPI.WritePoint(p)
}

// Close influx client
func (i *Influx) Close() {
	i.writeAPI.Flush()
	i.client.Close()
}
