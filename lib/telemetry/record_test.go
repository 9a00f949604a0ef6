package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedRecording(t *testing.T) {
	rec := &RecordingAPI{}
	tel := NewScopedAPI("cnavi", NewScopedAPI("session", rec))

	tel.ReportBroken("login", "boom")
	tel.ReportWarning("post")
	tel.ReportCount("courses", 3)

	require.Equal(t, []string{"cnavi: session: login"}, rec.Ids(KindBroken))
	require.Equal(t, []string{"cnavi: session: post"}, rec.Ids(KindWarning))
	require.Equal(t, []string{"cnavi: session: courses"}, rec.Ids(KindCount))
	require.Empty(t, rec.Ids(KindDebug))
}
