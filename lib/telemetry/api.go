package telemetry

import (
	"fmt"
)

// API is an abstraction over logging so reports can be asserted on in tests.
//
// Report ids name the component that broke, not the line that broke:
// `<struct or intf>.<method>`, all lowercase, dashes between words of a
// method (ex. `session.select-course`). Whether something broke is already
// said by which method was called, so ids like `session.broken-login` should
// just be `session.login`.
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that does not necessarily indicate brokenness.
	ReportWarning(id string, params ...any)

	// ReportDebug reports some debug information.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the count of a specific event at the current time.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a sub logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
