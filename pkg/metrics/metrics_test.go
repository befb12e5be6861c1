package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should register under the given namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.framesAnalyzed.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_frames_analyzed_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "proctor")
				So(manager.subsystem, ShouldEqual, "monitor")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording event outcomes by label", func() {
			before := testutil.ToFloat64(globalManager.eventsLogged.WithLabelValues("book"))
			RecordEventDetected("book")
			RecordEventLogged("book")
			RecordEventSuppressed("book")

			Convey("Then the labelled counter should advance", func() {
				So(testutil.ToFloat64(globalManager.eventsLogged.WithLabelValues("book")), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateActiveSessions(3)
			UpdateQueueSize(7)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSessions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordFrameAnalyzed(12, 85)
				RecordFrameDegraded()
				RecordRecognitionFailure("faces")
				RecordFrameRateLimited()
				RecordSinkDropped()
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("closed")
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordStoreWriteError()
				UpdateTotalCandidates(10)
				RecordHTTPRequest("/candidates", "GET", "200")
				RecordHTTPRequestDuration("/candidates", "GET", "200", 1)
				RecordErrorByEndpoint("/analyze-frame", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordEventDetected("cell phone")
				UpdateQueueSize(j)
				RecordHTTPRequest("/analyze-frame", "POST", "200")
			}
		}()
	}
	wg.Wait()

	families, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "events_detected_total") {
			found = true
		}
	}
	if !found {
		t.Fatal("events_detected_total not registered")
	}
}
