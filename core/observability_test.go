package core

import (
	"context"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func newObservedService(t *testing.T) (*Service, *captureMetricsRecorder, *captureLogger) {
	t.Helper()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, metrics, logger
}

func TestServiceObservability_RegisterSuccess(t *testing.T) {
	svc, metrics, logger := newObservedService(t)
	if result := svc.Register(context.Background(), call("O", "O"), "A"); !result.OK() {
		t.Fatalf("register: %#v", result)
	}

	if !hasCounter(metrics.counters, "peers.register.total", "success") {
		t.Fatalf("expected peers.register.total success counter")
	}
	if !hasHistogram(metrics.histograms, "peers.register.duration_ms", "success") {
		t.Fatalf("expected peers.register.duration_ms success histogram")
	}
	if !hasLog(logger.snapshot(), "info", "register succeeded", "register") {
		t.Fatalf("expected register success log")
	}
	for _, counter := range metrics.counters {
		if _, ok := counter.tags["target_peer_id"]; ok {
			t.Fatalf("peer ids must not be used as metric tags: %#v", counter.tags)
		}
	}
}

func TestServiceObservability_RejectionIsWarning(t *testing.T) {
	svc, metrics, logger := newObservedService(t)
	result := svc.Register(context.Background(), call("X", "O"), "Y")
	if result.RetCode != CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %#v", result)
	}
	if !hasCounter(metrics.counters, "peers.register.total", "failure") {
		t.Fatalf("expected failure counter")
	}
	records := logger.snapshot()
	if !hasLog(records, "warn", "register rejected", "register") {
		t.Fatalf("expected register rejected warning")
	}
	last := records[len(records)-1]
	if last.fields["error_text_code"] != PeersErrorUnauthorized {
		t.Fatalf("expected error_text_code %q, got %#v", PeersErrorUnauthorized, last.fields["error_text_code"])
	}
	if last.fields["caller_id"] != "X" || last.fields["target_peer_id"] != "Y" {
		t.Fatalf("expected caller and target fields, got %#v", last.fields)
	}
}

func TestServiceObservability_StorageFailureIsError(t *testing.T) {
	storage := newStubStorage()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithStorage(storage),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	storage.containsErr = context.DeadlineExceeded

	svc.GetStatus(context.Background(), call("A", "O"))
	if !hasLog(logger.snapshot(), "error", "get_status failed", "get_status") {
		t.Fatalf("expected get_status failure log")
	}
	found := false
	for _, counter := range metrics.counters {
		if counter.name == "peers.get_status.total" && counter.tags["code"] == CodeStorageFailure.String() {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected storage_failure code tag")
	}
}

func TestServiceObservability_ProvenanceOperations(t *testing.T) {
	svc, metrics, _ := newObservedService(t)
	svc.SetExpectedCaller(context.Background(), ProvenanceTuple{PeerPK: "p"})
	svc.IsAuthorized(context.Background(), call("A", "O"))

	if !hasCounter(metrics.counters, "peers.pin_provenance.total", "success") {
		t.Fatalf("expected pin_provenance counter")
	}
	if !hasCounter(metrics.counters, "peers.verify_provenance.total", "success") {
		t.Fatalf("expected verify_provenance counter")
	}
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

// hasLog matches level and message; an empty eventType matches any event.
func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level {
			continue
		}
		if item.msg != message {
			continue
		}
		if eventType == "" || item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}
