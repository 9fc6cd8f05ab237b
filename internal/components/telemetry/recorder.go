package telemetry

import (
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelBroken
	LevelCount
)

type Report struct {
	Level  Level
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant to be used
// in tests to assert that a component reported (or did not report) something.
//
// Reports are also forwarded to SlogAPI so they still show up in test output.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
	slog    SlogAPI
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Report{Level: LevelBroken, ID: id, Params: params})
	r.slog.ReportBroken(id, params...)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Report{Level: LevelWarning, ID: id, Params: params})
	r.slog.ReportWarning(id, params...)
}

func (r *Recorder) ReportInfo(id string, params ...any) {
	r.push(Report{Level: LevelInfo, ID: id, Params: params})
	r.slog.ReportInfo(id, params...)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Report{Level: LevelDebug, ID: msg, Params: params})
	r.slog.ReportDebug(msg, params...)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Report{Level: LevelCount, ID: id, Count: count})
	r.slog.ReportCount(id, count)
}

// Reports returns all the reports recorded at the given level whose id ends with `suffix`.
// Ids are matched by suffix since they usually carry the namespaces of ScopedAPI.
func (r *Recorder) Reports(level Level, suffix string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Level == level && strings.HasSuffix(report.ID, suffix) {
			out = append(out, report)
		}
	}
	return out
}
