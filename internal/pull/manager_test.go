package pull

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cnavi/internal/chrono"
	"cnavi/internal/db"
	"cnavi/lib/platforms/cnavi"
	"cnavi/lib/telemetry"
	"cnavi/lib/testutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const dashboardHtml = `<form>
<div class="w-conbox"><span class="w-day">月1限</span><span class="w-title"><a onclick="f('a','b','','list','c')">線形代数 A</a></span></div>
<div class="w-conbox"><span class="w-day">Notice</span><span class="w-title"><a>Maintenance</a></span></div>
<div class="w-conbox"><span class="w-day">Tues 3</span><span class="w-title"><a onclick="f('a','b','','list','c')">Computer Systems</a></span></div>
<div class="w-conbox"><span class="w-day">Fri 5</span><span class="w-title"><a onclick="f('a','b','','list','c')">Broken Course</a></span></div>
</form>`

func lecturePage(titles ...string) string {
	var sb strings.Builder
	for _, title := range titles {
		fmt.Fprintf(&sb, `<div class="w-lecbox"><input name="hidContentsName" value="%s"></div>`, title)
	}
	return sb.String()
}

type fakePortal struct {
	loginErr error
	pages    map[string]string
	opened   []string
}

func (p *fakePortal) Login(ctx context.Context, creds cnavi.Credentials) (*goquery.Document, error) {
	if p.loginErr != nil {
		return nil, p.loginErr
	}
	return goquery.NewDocumentFromReader(strings.NewReader(dashboardHtml))
}

func (p *fakePortal) SelectCourse(ctx context.Context, course cnavi.Course, dashboard *goquery.Document) (*goquery.Document, error) {
	p.opened = append(p.opened, course.Title)
	page, ok := p.pages[course.Title]
	if !ok {
		return nil, &cnavi.FieldError{Step: "course detail", Field: "hidFolderId"}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

type staticCredentials struct {
	creds cnavi.Credentials
	err   error
}

func (s staticCredentials) Get(ctx context.Context) (cnavi.Credentials, error) {
	return s.creds, s.err
}

func setup(t testing.TB, portal Portal, creds CredentialSource) (Manager, *telemetry.RecordingAPI) {
	rec := &telemetry.RecordingAPI{}
	manager, err := NewManager(ManagerOptions{
		DB:          testutil.OpenDB(t, db.Schema),
		Portal:      portal,
		Credentials: creds,
		Markup:      cnavi.DefaultFields().Markup,
		Time:        chrono.FixedTime{Time: time.Unix(1712000000, 0)},
		Tel:         rec,
	})
	require.NoError(t, err)
	return manager, rec
}

func validCredentials() CredentialSource {
	return staticCredentials{creds: cnavi.Credentials{Identifier: "a", Secret: "b"}}
}

func lectureTitles(result CourseResult) []string {
	var out []string
	for _, l := range result.Lectures {
		out = append(out, l.Title)
	}
	return out
}

func TestPull(t *testing.T) {
	portal := &fakePortal{pages: map[string]string{
		"線形代数 A":           lecturePage("第1回", "お知らせ", "第2回"),
		"Computer Systems": lecturePage("Week 1"),
	}}
	manager, rec := setup(t, portal, validCredentials())
	ctx := context.Background()

	summary, err := manager.Pull(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Courses, 3)
	require.Equal(t, []string{"線形代数 A", "Computer Systems", "Broken Course"}, portal.opened)

	require.Equal(t, "月1限", summary.Courses[0].Date)
	if diff := cmp.Diff([]string{"第1回", "第2回"}, lectureTitles(summary.Courses[0])); diff != "" {
		t.Fatal(diff)
	}
	for _, l := range summary.Courses[0].Lectures {
		require.True(t, l.New)
	}
	require.ErrorIs(t, summary.Courses[2].Err, cnavi.ErrFieldNotFound)
	require.Empty(t, summary.Courses[2].Lectures)
	require.Contains(t, rec.Ids(telemetry.KindWarning), "pull: manager.pull")

	// a second pull only reports what is new
	portal.pages["線形代数 A"] = lecturePage("第1回", "第2回", "第3回")
	summary, err = manager.Pull(ctx, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"第3回"}, lectureTitles(summary.Courses[0])); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, summary.Courses[1].Lectures)

	summary, err = manager.Pull(ctx, Options{All: true})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"第1回", "第2回", "第3回"}, lectureTitles(summary.Courses[0])); diff != "" {
		t.Fatal(diff)
	}
	for _, l := range summary.Courses[0].Lectures {
		require.False(t, l.New)
	}

	history, err := manager.History(ctx, "線形代数 A")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.EqualValues(t, 1712000000, history[0].FirstSeen)
}

func TestPullCourseFilter(t *testing.T) {
	portal := &fakePortal{pages: map[string]string{
		"線形代数 A":           lecturePage("第1回"),
		"Computer Systems": lecturePage("Week 1"),
	}}
	manager, _ := setup(t, portal, validCredentials())
	ctx := context.Background()

	summary, err := manager.Pull(ctx, Options{CourseFilter: "computer sytems"})
	require.NoError(t, err)
	require.Len(t, summary.Courses, 1)
	require.Equal(t, "Computer Systems", summary.Courses[0].Title)
	require.Equal(t, []string{"Computer Systems"}, portal.opened)

	summary, err = manager.Pull(ctx, Options{CourseFilter: "線形代数"})
	require.NoError(t, err)
	require.Len(t, summary.Courses, 1)

	_, err = manager.Pull(ctx, Options{CourseFilter: "Organic Chemistry"})
	require.ErrorIs(t, err, ErrNoCourseMatched)
}

func TestPullLoginFailure(t *testing.T) {
	ctx := context.Background()

	manager, _ := setup(t, &fakePortal{}, staticCredentials{err: cnavi.ErrMissingCredentials})
	_, err := manager.Pull(ctx, Options{})
	require.ErrorIs(t, err, cnavi.ErrMissingCredentials)

	portal := &fakePortal{loginErr: fmt.Errorf("login: %w", cnavi.ErrInvalidCredentials)}
	manager, _ = setup(t, portal, validCredentials())
	_, err = manager.Pull(ctx, Options{})
	require.ErrorIs(t, err, cnavi.ErrInvalidCredentials)
	require.Empty(t, portal.opened)
}

func TestPullCanceled(t *testing.T) {
	portal := &fakePortal{pages: map[string]string{}}
	manager, _ := setup(t, portal, validCredentials())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := manager.Pull(ctx, Options{})
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, portal.opened)
}

func TestPullRepeatedTitles(t *testing.T) {
	portal := &fakePortal{pages: map[string]string{
		"線形代数 A":           lecturePage("資料", "資料", ""),
		"Computer Systems": lecturePage("Week 1"),
	}}
	manager, rec := setup(t, portal, validCredentials())
	ctx := context.Background()

	summary, err := manager.Pull(ctx, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff([]LectureResult{
		{Title: "資料", New: true},
		{Title: "資料", New: true},
	}, summary.Courses[0].Lectures); diff != "" {
		t.Fatal(diff)
	}
	require.Contains(t, rec.Ids(telemetry.KindWarning), "pull: manager.lecture")

	portal.pages["線形代数 A"] = lecturePage("資料", "資料", "資料")
	summary, err = manager.Pull(ctx, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff([]LectureResult{
		{Title: "資料", New: true},
	}, summary.Courses[0].Lectures); diff != "" {
		t.Fatal(diff)
	}

	history, err := manager.History(ctx, "線形代数 A")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, l := range history {
		require.Equal(t, "資料", l.Title)
		require.EqualValues(t, i, l.Occurrence)
	}
}
