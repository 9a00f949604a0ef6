package cnavi

import (
	"regexp"
	"strings"

	"cnavi/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// weekdayPrefixes tell real course boxes apart from decorative boxes that
// share the same class.
var weekdayPrefixes = []string{
	"月", "火", "水", "木", "金", "土",
	"Mon", "Tues", "Wed", "Thur", "Fri", "Sat",
}

const announcementsTitle = "お知らせ"

type Course struct {
	Title string
	Date  string
	Row   *goquery.Selection
}

type Lecture struct {
	Title string
	Row   *goquery.Selection
}

func hasWeekdayPrefix(date string) bool {
	for _, prefix := range weekdayPrefixes {
		if strings.HasPrefix(date, prefix) {
			return true
		}
	}
	return false
}

// ExtractCourses returns the course boxes of the dashboard in document order.
func ExtractCourses(doc *goquery.Document, markup Markup) []Course {
	var courses []Course
	doc.Find(markup.CourseBox).Each(func(_ int, row *goquery.Selection) {
		date := htmlutil.CleanText(row.Find(markup.CourseDate).First().Text())
		if !hasWeekdayPrefix(date) {
			return
		}
		courses = append(courses, Course{
			Title: strings.TrimSpace(row.Find(markup.CourseTitle).First().Text()),
			Date:  date,
			Row:   row,
		})
	})
	return courses
}

// ExtractLectures returns the lecture blocks of a course page in document
// order, without the announcements block.
func ExtractLectures(doc *goquery.Document, markup Markup) []Lecture {
	var lectures []Lecture
	doc.Find(markup.LectureBlock).Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(
			row.Find(markup.LectureTitle).First().AttrOr(markup.LectureTitleAttr, ""),
		)
		if title == announcementsTitle {
			return
		}
		lectures = append(lectures, Lecture{Title: title, Row: row})
	})
	return lectures
}

type AdHocFields struct {
	ControllerParameters string
	HidFolderId          string
	HidCommunityId       string
}

var (
	handlerCallRegex = regexp.MustCompile(`(?s)^\s*(?:javascript:)?\s*(?:return\s+)?[A-Za-z_$][\w$]*\s*\((.*)\)\s*;?\s*(?:return\s+false\s*;?\s*)?$`)
	quotedArgRegex   = regexp.MustCompile(`'([^']*)'`)
)

// parseHandlerArgs returns the single-quoted arguments of an inline handler
// of the form `name('a','b',...)`, in order. It returns nil when the handler
// is not a single call.
func parseHandlerArgs(handler string) []string {
	groups := handlerCallRegex.FindStringSubmatch(handler)
	if len(groups) < 2 {
		return nil
	}
	matches := quotedArgRegex.FindAllStringSubmatch(groups[1], -1)
	args := make([]string, len(matches))
	for i, m := range matches {
		args[i] = m[1]
	}
	return args
}

// ParseAdHocFields reads the course selection parameters that only exist as
// literal arguments of the anchor's onclick handler. Positions 1, 2 and 5
// are used, which ties this to the portal's exact markup.
func ParseAdHocFields(anchor *goquery.Selection) (AdHocFields, error) {
	handler, ok := anchor.Attr("onclick")
	if !ok {
		return AdHocFields{}, ErrAdHocFields
	}
	args := parseHandlerArgs(handler)
	if len(args) < 5 {
		return AdHocFields{}, ErrAdHocFields
	}
	return AdHocFields{
		ControllerParameters: args[0],
		HidFolderId:          args[1],
		HidCommunityId:       args[4],
	}, nil
}
