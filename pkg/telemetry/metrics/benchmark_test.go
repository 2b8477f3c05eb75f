package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Benchmark_Collector_RecordTurn benchmarks turn recording
func Benchmark_Collector_RecordTurn(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordTurn("openai", "gpt-4o", "success", time.Second)
	}
}

// Benchmark_Collector_RecordTurn_Parallel benchmarks parallel turn recording
func Benchmark_Collector_RecordTurn_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordTurn("openai", "gpt-4o", "success", time.Second)
		}
	})
}

// Benchmark_Collector_RecordAccessDecision benchmarks access decisions
func Benchmark_Collector_RecordAccessDecision(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordAccessDecision("quota_messages", time.Millisecond)
	}
}

// Benchmark_CardinalityLimiter_Allow benchmarks the limiter fast path
func Benchmark_CardinalityLimiter_Allow(b *testing.B) {
	limiter := NewCardinalityLimiter(10000)
	limiter.Allow("turn:openai:gpt-4o:success")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow("turn:openai:gpt-4o:success")
	}
}
