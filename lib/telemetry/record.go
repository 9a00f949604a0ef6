package telemetry

import "sync"

const (
	KindBroken  = "broken"
	KindWarning = "warning"
	KindDebug   = "debug"
	KindCount   = "count"
)

type Report struct {
	Kind   string
	Id     string
	Params []any
}

// RecordingAPI keeps every report in memory, for asserting on in tests.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecordingAPI) record(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.record(KindBroken, id, params)
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.record(KindWarning, id, params)
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.record(KindDebug, msg, params)
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.record(KindCount, id, []any{count})
}

// Ids returns the ids of the reports of the given kind, in order.
func (r *RecordingAPI) Ids(kind string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []string
	for _, report := range r.reports {
		if report.Kind == kind {
			out = append(out, report.Id)
		}
	}
	return out
}

type NoopAPI struct{}

func (NoopAPI) ReportBroken(id string, params ...any)  {}
func (NoopAPI) ReportWarning(id string, params ...any) {}
func (NoopAPI) ReportDebug(msg string, params ...any)  {}
func (NoopAPI) ReportCount(id string, count int64)     {}
