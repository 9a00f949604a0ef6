package cnavi

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseHtml(t testing.TB, contents string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestDefaultFields(t *testing.T) {
	fields := DefaultFields()

	require.Equal(t, 3, fields.Version)
	require.Len(t, fields.Login.Fields, 21)
	require.Len(t, fields.LoginRedirect.Fields, 15)
	require.Len(t, fields.CourseDetail.Fields, 57)
	require.Len(t, fields.CourseDetail.CourseFields, 5)
	require.Len(t, fields.CourseRedirect.Fields, 14)
	require.Equal(t, []string{""}, fields.CourseDetail.Fallbacks["communityIdInfo[]"])
	require.Equal(t, "1", fields.CourseDetail.Constants["hidNewWindowFlg"])
	require.Equal(t, []string{"ControllerParameters"}, fields.LoginRedirect.Cache)
	require.NoError(t, fields.Validate())
}

func TestParseFieldsRejectsInvalid(t *testing.T) {
	_, err := ParseFields([]byte(`{version: 0}`))
	require.Error(t, err)

	fields := DefaultFields()
	fields.Markup.CourseBox = ""
	require.ErrorContains(t, fields.Validate(), "markup.course_box")

	_, err = ParseFields([]byte(`{version: 1,`))
	require.Error(t, err)
}

func TestFindValueByName(t *testing.T) {
	doc := parseHtml(t, `<form>
		<input type="hidden" name="hidFolderId" value="F1">
		<input type="hidden" name="folder_id[]" value="F2">
		<input type="hidden" name="hidFolderId" value="second">
		<input type="hidden" name="" value="quirk">
		<input type="hidden" name="novalue">
		<select name="lang"><option>ja</option></select>
	</form>`)

	testCases := []struct {
		name     string
		expected string
		err      error
	}{
		{name: "hidFolderId", expected: "F1"},
		{name: "folder_id[]", expected: "F2"},
		{name: "", expected: "quirk"},
		{name: "novalue", expected: ""},
		{name: "lang", expected: ""},
		{name: "hidCommunityId", err: ErrFieldNotFound},
		{name: "folder_id", err: ErrFieldNotFound},
	}

	for _, test := range testCases {
		value, err := FindValueByName(doc.Selection, test.name)
		if test.err != nil {
			require.ErrorIs(t, err, test.err, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, value, test.name)
	}
}

func TestLookupFallback(t *testing.T) {
	quirky := parseHtml(t, `<div><input name="" value="C1"></div>`)
	normal := parseHtml(t, `<div><input name="communityIdInfo[]" value="C2"><input name="" value="other"></div>`)
	empty := parseHtml(t, `<div></div>`)

	l := lookup{name: "communityIdInfo[]", fallbacks: []string{""}}

	value, err := l.find(quirky.Selection)
	require.NoError(t, err)
	require.Equal(t, "C1", value)

	value, err = l.find(normal.Selection)
	require.NoError(t, err)
	require.Equal(t, "C2", value)

	_, err = l.find(empty.Selection)
	require.ErrorIs(t, err, ErrFieldNotFound)

	_, err = lookup{name: "communityIdInfo[]"}.find(quirky.Selection)
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestExtractInto(t *testing.T) {
	doc := parseHtml(t, `<form><input name="a" value="1"><input name="b" value="2"></form>`)

	params := url.Values{}
	err := extractInto(params, doc.Selection, "test", []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Equal(t, url.Values{"a": {"1"}, "b": {"2"}}, params)

	err = extractInto(url.Values{}, doc.Selection, "test", []string{"a", "c"}, nil)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, "c", fieldErr.Field)
	require.Equal(t, "test", fieldErr.Step)
	require.ErrorIs(t, err, ErrFieldNotFound)
}
