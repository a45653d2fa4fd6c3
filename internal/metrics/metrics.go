package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	linksDesc = prometheus.NewDesc(
		"gallerylinks_links",
		"Number of gallery links in the directory",
		nil,
		nil,
	)

	GalleryLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallerylinks_gallery_loads_total",
		Help: "Gallery page loads by resulting view state",
	}, []string{"state"})

	Exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallerylinks_exports_total",
		Help: "Export requests by kind and outcome",
	}, []string{"kind", "outcome"})

	ExportedFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallerylinks_exported_files_total",
		Help: "Files written into exports",
	}, []string{"kind"})

	FolderReachable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gallerylinks_folder_reachable",
		Help: "1 if the link's folder could be listed on the last check, 0 otherwise",
	}, []string{"short_id"})

	FolderImages = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gallerylinks_folder_images",
		Help: "Images found in the link's folder on the last check",
	}, []string{"short_id"})
)

// LinkCounter reports the number of stored links. *db.DB implements it.
type LinkCounter interface {
	CountLinks(ctx context.Context) (int64, error)
}

// LinkCollector reads the link count from the database on each scrape.
type LinkCollector struct {
	counter LinkCounter
}

// NewLinkCollector creates a collector over counter.
func NewLinkCollector(counter LinkCounter) *LinkCollector {
	return &LinkCollector{counter: counter}
}

// Describe sends the metric descriptor to the channel.
func (c *LinkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- linksDesc
}

// Collect queries the database and emits the current count.
func (c *LinkCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.counter.CountLinks(ctx)
	if err != nil {
		slog.Error("failed to collect link count metric", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(linksDesc, prometheus.GaugeValue, float64(n))
}

var initOnce sync.Once

// Init registers all collectors with the default registry.
// Must be called once at startup.
func Init(counter LinkCounter) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			NewLinkCollector(counter),
			GalleryLoads,
			Exports,
			ExportedFiles,
			FolderReachable,
			FolderImages,
		)
	})
}

// RecordExport counts one finished export.
func RecordExport(kind string, files int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Exports.WithLabelValues(kind, outcome).Inc()
	if err == nil {
		ExportedFiles.WithLabelValues(kind).Add(float64(files))
	}
}

// RecordFolderCheck sets the folder gauges for one link.
func RecordFolderCheck(shortID string, images int, err error) {
	if err != nil {
		FolderReachable.WithLabelValues(shortID).Set(0)
		FolderImages.DeleteLabelValues(shortID)
		return
	}
	FolderReachable.WithLabelValues(shortID).Set(1)
	FolderImages.WithLabelValues(shortID).Set(float64(images))
}

// ForgetFolder drops the gauges of a deleted link.
func ForgetFolder(shortID string) {
	FolderReachable.DeleteLabelValues(shortID)
	FolderImages.DeleteLabelValues(shortID)
}
