package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type recordOpLabel struct {
	collection string
	op         string
	outcome    string
}

type renderSectionLabel struct {
	page    string
	section string
	outcome string
}

// Recorder aggregates in-memory counters for HTTP requests, record store
// operations, session lifecycle events, and render pipeline sections. Writers
// coordinate through a RWMutex; readers get stable sorted output.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	recordOps       map[recordOpLabel]uint64
	sessionEvents   map[string]uint64
	renderSections  map[renderSectionLabel]uint64
	renderDuration  map[renderSectionLabel]time.Duration
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without further setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		recordOps:       make(map[recordOpLabel]uint64),
		sessionEvents:   make(map[string]uint64),
		renderSections:  make(map[renderSectionLabel]uint64),
		renderDuration:  make(map[renderSectionLabel]time.Duration),
	}
}

// Default returns the singleton Recorder shared by packages that do not carry
// their own instrumentation handle.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveRecordOp records a store operation keyed by collection and operation
// name, bucketing the outcome as "ok" or "error".
func (r *Recorder) ObserveRecordOp(collection, op string, err error) {
	label := recordOpLabel{
		collection: normalizeName(collection),
		op:         normalizeName(op),
		outcome:    outcomeFor(err),
	}
	r.mu.Lock()
	r.recordOps[label]++
	r.mu.Unlock()
}

// ObserveSessionEvent records a session lifecycle event such as "created",
// "validated", "rejected", or "purged".
func (r *Recorder) ObserveSessionEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.sessionEvents[normalized]++
	r.mu.Unlock()
}

// ObserveRenderSection records one data section fetch within a page render,
// keyed by page, section, and outcome, with its cumulative duration.
func (r *Recorder) ObserveRenderSection(page, section string, err error, duration time.Duration) {
	label := renderSectionLabel{
		page:    normalizePath(page),
		section: normalizeName(section),
		outcome: outcomeFor(err),
	}
	r.mu.Lock()
	r.renderSections[label]++
	r.renderDuration[label] += duration
	r.mu.Unlock()
}

// RecordOpCounts returns a copy of the record operation counters for tests
// and reporting.
func (r *Recorder) RecordOpCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.recordOps))
	for label, v := range r.recordOps {
		key := label.collection + "/" + label.op + "/" + label.outcome
		counts[key] = v
	}
	return counts
}

// Reset clears all counters. Intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.recordOps = make(map[recordOpLabel]uint64)
	r.sessionEvents = make(map[string]uint64)
	r.renderSections = make(map[renderSectionLabel]uint64)
	r.renderDuration = make(map[renderSectionLabel]time.Duration)
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format with label sets sorted
// for stable scrapes.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	recordOps := r.sortedRecordOpLabels()
	sessionEvents := r.sortedSessionEvents()
	renderSections := r.sortedRenderSectionLabels()

	fmt.Fprintln(w, "# HELP shilohnova_http_requests_total Total number of HTTP requests processed")
	fmt.Fprintln(w, "# TYPE shilohnova_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "shilohnova_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP shilohnova_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE shilohnova_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "shilohnova_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP shilohnova_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE shilohnova_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "shilohnova_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP shilohnova_record_ops_total Record store operations by collection, operation, and outcome")
	fmt.Fprintln(w, "# TYPE shilohnova_record_ops_total counter")
	for _, label := range recordOps {
		count := r.recordOps[label]
		fmt.Fprintf(w, "shilohnova_record_ops_total{collection=\"%s\",op=\"%s\",outcome=\"%s\"} %d\n", label.collection, label.op, label.outcome, count)
	}

	fmt.Fprintln(w, "# HELP shilohnova_session_events_total Session lifecycle events by type")
	fmt.Fprintln(w, "# TYPE shilohnova_session_events_total counter")
	for _, event := range sessionEvents {
		count := r.sessionEvents[event]
		fmt.Fprintf(w, "shilohnova_session_events_total{event=\"%s\"} %d\n", event, count)
	}

	fmt.Fprintln(w, "# HELP shilohnova_render_sections_total Render pipeline section fetches by page, section, and outcome")
	fmt.Fprintln(w, "# TYPE shilohnova_render_sections_total counter")
	for _, label := range renderSections {
		count := r.renderSections[label]
		fmt.Fprintf(w, "shilohnova_render_sections_total{page=\"%s\",section=\"%s\",outcome=\"%s\"} %d\n", label.page, label.section, label.outcome, count)
	}

	fmt.Fprintln(w, "# HELP shilohnova_render_section_duration_seconds_sum Cumulative duration of section fetches in seconds")
	fmt.Fprintln(w, "# TYPE shilohnova_render_section_duration_seconds_sum counter")
	for _, label := range renderSections {
		duration := r.renderDuration[label].Seconds()
		fmt.Fprintf(w, "shilohnova_render_section_duration_seconds_sum{page=\"%s\",section=\"%s\",outcome=\"%s\"} %f\n", label.page, label.section, label.outcome, duration)
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedRecordOpLabels() []recordOpLabel {
	labels := make([]recordOpLabel, 0, len(r.recordOps))
	for label := range r.recordOps {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].collection != labels[j].collection {
			return labels[i].collection < labels[j].collection
		}
		if labels[i].op != labels[j].op {
			return labels[i].op < labels[j].op
		}
		return labels[i].outcome < labels[j].outcome
	})
	return labels
}

func (r *Recorder) sortedSessionEvents() []string {
	events := make([]string, 0, len(r.sessionEvents))
	for event := range r.sessionEvents {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

func (r *Recorder) sortedRenderSectionLabels() []renderSectionLabel {
	labels := make([]renderSectionLabel, 0, len(r.renderSections))
	for label := range r.renderSections {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].page != labels[j].page {
			return labels[i].page < labels[j].page
		}
		if labels[i].section != labels[j].section {
			return labels[i].section < labels[j].section
		}
		return labels[i].outcome < labels[j].outcome
	})
	return labels
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	normalized := path
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func outcomeFor(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRequest records a request on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveSessionEvent records a session event on the default recorder.
func ObserveSessionEvent(event string) {
	defaultRecorder.ObserveSessionEvent(event)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
