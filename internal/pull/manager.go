package pull

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cnavi/internal/chrono"
	"cnavi/internal/db"
	"cnavi/lib/platforms/cnavi"
	"cnavi/lib/telemetry"
	"cnavi/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("cnavi/internal/pull")
	meter  = otel.Meter("cnavi/internal/pull")
)

const (
	report_manager_pull    = "manager.pull"
	report_manager_record  = "manager.record"
	report_manager_lecture = "manager.lecture"
)

var ErrNoCourseMatched = errors.New("no course matches the filter")

// Portal is the part of a portal session the manager drives.
type Portal interface {
	Login(ctx context.Context, creds cnavi.Credentials) (*goquery.Document, error)
	SelectCourse(ctx context.Context, course cnavi.Course, dashboard *goquery.Document) (*goquery.Document, error)
}

type CredentialSource interface {
	Get(ctx context.Context) (cnavi.Credentials, error)
}

type Options struct {
	// All lists every lecture instead of only the ones first seen by this
	// pull.
	All bool
	// CourseFilter restricts the pull to courses whose title matches it.
	CourseFilter string
}

type LectureResult struct {
	Title string
	New   bool
}

type CourseResult struct {
	Title    string
	Date     string
	Lectures []LectureResult
	// Err is set when the course could not be opened, Lectures is empty then.
	Err error
}

type Summary struct {
	Courses []CourseResult
	// Skipped is the number of courses that failed to open.
	Skipped int
}

type ManagerOptions struct {
	DB          *sql.DB
	Portal      Portal
	Credentials CredentialSource
	Markup      cnavi.Markup
	Time        chrono.TimeAPI
	Tel         telemetry.API
}

// Manager logs in, walks the selected courses one at a time and records the
// lectures it sees in the ledger.
type Manager struct {
	qry    *db.Queries
	makeTx db.MakeTx
	portal Portal
	creds  CredentialSource
	markup cnavi.Markup
	time   chrono.TimeAPI
	tel    telemetry.API

	courseCounter  metric.Int64Counter
	lectureCounter metric.Int64Counter
}

func NewManager(opts ManagerOptions) (Manager, error) {
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	if opts.Tel == nil {
		opts.Tel = telemetry.SlogAPI{}
	}

	courseCounter, err := meter.Int64Counter(
		"cnavi.courses",
		metric.WithDescription("The number of courses opened."),
	)
	if err != nil {
		return Manager{}, err
	}
	lectureCounter, err := meter.Int64Counter(
		"cnavi.lectures",
		metric.WithDescription("The number of lectures listed."),
	)
	if err != nil {
		return Manager{}, err
	}

	return Manager{
		qry:            db.New(opts.DB),
		makeTx:         db.NewMakeTx(opts.DB),
		portal:         opts.Portal,
		creds:          opts.Credentials,
		markup:         opts.Markup,
		time:           opts.Time,
		tel:            telemetry.NewScopedAPI("pull", opts.Tel),
		courseCounter:  courseCounter,
		lectureCounter: lectureCounter,
	}, nil
}

func filterCourses(courses []cnavi.Course, filter string) []cnavi.Course {
	if filter == "" {
		return courses
	}
	var out []cnavi.Course
	for _, c := range courses {
		if textutil.MatchName(c.Title, filter) {
			out = append(out, c)
		}
	}
	return out
}

func (m Manager) Pull(ctx context.Context, opts Options) (Summary, error) {
	ctx, span := tracer.Start(ctx, "manager:Pull")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("all", opts.All),
		attribute.String("course_filter", opts.CourseFilter),
	)

	fail := func(summary Summary, err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	creds, err := m.creds.Get(ctx)
	if err != nil {
		return fail(Summary{}, err)
	}
	dashboard, err := m.portal.Login(ctx, creds)
	if err != nil {
		return fail(Summary{}, err)
	}

	courses := filterCourses(cnavi.ExtractCourses(dashboard, m.markup), opts.CourseFilter)
	if len(courses) == 0 && opts.CourseFilter != "" {
		return fail(Summary{}, fmt.Errorf("%w: %q", ErrNoCourseMatched, opts.CourseFilter))
	}
	m.tel.ReportDebug("courses on dashboard", len(courses))

	var summary Summary
	for _, course := range courses {
		if ctx.Err() != nil {
			return fail(summary, ctx.Err())
		}

		result, err := m.pullCourse(ctx, course, dashboard, opts.All)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(summary, err)
		}
		if err != nil {
			m.tel.ReportWarning(report_manager_pull, err, course.Title)
			summary.Skipped++
			result.Err = err
		}
		summary.Courses = append(summary.Courses, result)
	}

	return summary, nil
}

func (m Manager) pullCourse(ctx context.Context, course cnavi.Course, dashboard *goquery.Document, all bool) (CourseResult, error) {
	result := CourseResult{Title: course.Title, Date: course.Date}

	detail, err := m.portal.SelectCourse(ctx, course, dashboard)
	if err != nil {
		return result, err
	}
	m.courseCounter.Add(ctx, 1)

	lectures := m.titledLectures(course.Title, cnavi.ExtractLectures(detail, m.markup))
	m.lectureCounter.Add(ctx, int64(len(lectures)), metric.WithAttributes(
		attribute.String("course", course.Title),
	))

	isNew, err := m.record(ctx, course.Title, lectures)
	if err != nil {
		m.tel.ReportBroken(report_manager_record, err, course.Title)
		return result, err
	}

	for i, l := range lectures {
		if !all && !isNew[i] {
			continue
		}
		result.Lectures = append(result.Lectures, LectureResult{
			Title: l.Title,
			New:   isNew[i],
		})
	}
	return result, nil
}

// titledLectures drops lecture blocks without a title, they cannot be told
// apart in the ledger.
func (m Manager) titledLectures(course string, lectures []cnavi.Lecture) []cnavi.Lecture {
	out := make([]cnavi.Lecture, 0, len(lectures))
	for i, l := range lectures {
		if l.Title == "" {
			m.tel.ReportWarning(report_manager_lecture, "lecture block without a title", course, i)
			continue
		}
		out = append(out, l)
	}
	return out
}

// record adds the lectures to the ledger in a single transaction and
// reports which of them it had not seen before. Lectures sharing a title
// are told apart by the order they appear in.
func (m Manager) record(ctx context.Context, course string, lectures []cnavi.Lecture) ([]bool, error) {
	tx, discard, commit, err := m.makeTx(ctx)
	if err != nil {
		return nil, err
	}
	defer discard()

	now := m.time.Now().Unix()
	occurrences := map[string]int64{}
	isNew := make([]bool, len(lectures))
	for i, l := range lectures {
		n, err := tx.RecordLecture(ctx, db.RecordLectureParams{
			Course:     course,
			Title:      l.Title,
			Occurrence: occurrences[l.Title],
			FirstSeen:  now,
		})
		if err != nil {
			return nil, err
		}
		occurrences[l.Title]++
		isNew[i] = n > 0
	}

	err = commit()
	if err != nil {
		return nil, err
	}
	return isNew, nil
}

// History returns every lecture recorded for course, oldest first.
func (m Manager) History(ctx context.Context, course string) ([]db.Lecture, error) {
	return m.qry.GetCourseLectures(ctx, course)
}
