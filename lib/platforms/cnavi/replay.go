package cnavi

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Login posts the login form and follows the dummy page to the dashboard,
// which it returns.
func (s *Session) Login(ctx context.Context, creds Credentials) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	loginError := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrMissingCredentials) {
			s.tel.ReportBroken(report_session_login, err)
		}
		return fmt.Errorf("login: %w", err)
	}

	if creds.Identifier == "" || creds.Secret == "" {
		return nil, loginError(ErrMissingCredentials)
	}

	s.loginCache = map[string]string{}
	s.courseCache = map[string]string{}

	loginForm, err := s.get(ctx)
	if err != nil {
		return nil, loginError(err)
	}

	login := s.fields.Login
	params := url.Values{}
	err = extractInto(params, loginForm.Selection, "login", login.Fields, nil)
	if err != nil {
		return nil, loginError(err)
	}
	for name, value := range login.Constants {
		params.Set(name, value)
	}
	params.Set(login.Credentials.Identifier, creds.Identifier)
	params.Set(login.Credentials.Secret, creds.Secret)

	dummy, err := s.post(ctx, EncodingURL, params)
	if err != nil {
		return nil, loginError(err)
	}
	if dummy.Find(s.fields.Markup.LoginMarker).Length() > 0 {
		s.tel.ReportWarning(report_session_login, "login form rendered again after posting credentials")
		return nil, loginError(ErrInvalidCredentials)
	}

	redirect := s.fields.LoginRedirect
	params = url.Values{}
	err = extractInto(params, dummy.Selection, "login redirect", redirect.Fields, nil)
	if err != nil {
		return nil, loginError(err)
	}
	for _, name := range redirect.Cache {
		value, ok := params[name]
		if ok {
			s.loginCache[name] = value[0]
			continue
		}
		found, err := FindValueByName(dummy.Selection, name)
		if err != nil {
			return nil, loginError(&FieldError{Step: "login redirect", Field: name})
		}
		s.loginCache[name] = found
	}

	dashboard, err := s.post(ctx, EncodingURL, params)
	if err != nil {
		return nil, loginError(err)
	}
	return dashboard, nil
}

// courseDetailParams builds the multipart parameters that open a course
// together with the values the following redirect step needs. It does not
// touch the session.
func (s *Session) courseDetailParams(course Course, dashboard *goquery.Document) (url.Values, map[string]string, error) {
	detail := s.fields.CourseDetail

	params := url.Values{}
	err := extractInto(params, dashboard.Selection, "course detail", detail.Fields, nil)
	if err != nil {
		return nil, nil, err
	}

	cache := map[string]string{}
	for _, name := range detail.CourseFields {
		value, err := lookup{name: name, fallbacks: detail.Fallbacks[name]}.find(course.Row)
		if err != nil {
			return nil, nil, &FieldError{Step: "course row", Field: name}
		}
		params.Set(name, value)
		cache[name] = value
	}

	adhoc, err := ParseAdHocFields(course.Row.Find(s.fields.Markup.CourseHandler).First())
	if err != nil {
		return nil, nil, err
	}
	if adhoc.HidFolderId == "" {
		adhoc.HidFolderId = cache["folder_id[]"]
	}
	if adhoc.HidCommunityId == "" {
		adhoc.HidCommunityId = cache["communityIdInfo[]"]
	}
	cache["ControllerParameters"] = adhoc.ControllerParameters
	cache["hidFolderId"] = adhoc.HidFolderId
	cache["hidCommunityId"] = adhoc.HidCommunityId
	for name, value := range cache {
		params.Set(name, value)
	}

	for name, value := range detail.Constants {
		params.Set(name, value)
	}
	return params, cache, nil
}

// SelectCourse opens a course from the dashboard and returns its detail
// page. The course cache is replaced only once every field of the course
// was found, a failure leaves it as it was.
func (s *Session) SelectCourse(ctx context.Context, course Course, dashboard *goquery.Document) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "session:SelectCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.Title))

	selectError := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_session_select_course, err, course.Title)
		return fmt.Errorf("select course %q: %w", course.Title, err)
	}

	params, cache, err := s.courseDetailParams(course, dashboard)
	if err != nil {
		return nil, selectError(err)
	}
	s.courseCache = cache

	dummy, err := s.post(ctx, EncodingMultipart, params)
	if err != nil {
		return nil, selectError(err)
	}

	redirect := s.fields.CourseRedirect
	params = url.Values{}
	err = extractInto(params, dummy.Selection, "course redirect", redirect.Fields, nil)
	if err != nil {
		return nil, selectError(err)
	}
	// the dummy page carries placeholders for these, only the cached values
	// identify the selected course
	for _, name := range redirect.Cached {
		value, ok := s.CachedField(name)
		if !ok {
			return nil, selectError(&FieldError{Step: "course redirect", Field: name})
		}
		params.Set(name, value)
	}

	detail, err := s.post(ctx, EncodingURL, params)
	if err != nil {
		return nil, selectError(err)
	}
	return detail, nil
}
