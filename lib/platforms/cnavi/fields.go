package cnavi

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

//go:embed fields.json5
var defaultFieldsFile []byte

type Credentials struct {
	Identifier string
	Secret     string
}

type CredentialFields struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type LoginStep struct {
	Credentials CredentialFields  `json:"credentials"`
	Constants   map[string]string `json:"constants"`
	Fields      []string          `json:"fields"`
}

type LoginRedirectStep struct {
	// Cache lists fields whose values are kept on the session for later steps.
	Cache  []string `json:"cache"`
	Fields []string `json:"fields"`
}

type CourseDetailStep struct {
	Constants    map[string]string   `json:"constants"`
	CourseFields []string            `json:"course_fields"`
	Fallbacks    map[string][]string `json:"fallbacks"`
	Fields       []string            `json:"fields"`
}

type CourseRedirectStep struct {
	// Cached fields are never read from the dummy document, its copies are
	// placeholders.
	Cached []string `json:"cached"`
	Fields []string `json:"fields"`
}

// Markup holds the selectors the listing extractor relies on.
type Markup struct {
	CourseBox        string `json:"course_box"`
	CourseDate       string `json:"course_date"`
	CourseTitle      string `json:"course_title"`
	CourseHandler    string `json:"course_handler"`
	LectureBlock     string `json:"lecture_block"`
	LectureTitle     string `json:"lecture_title"`
	LectureTitleAttr string `json:"lecture_title_attr"`
	LoginMarker      string `json:"login_marker"`
}

// Fields is the versioned description of every form the replay submits.
type Fields struct {
	Version        int                `json:"version"`
	Login          LoginStep          `json:"login"`
	LoginRedirect  LoginRedirectStep  `json:"login_redirect"`
	CourseDetail   CourseDetailStep   `json:"course_detail"`
	CourseRedirect CourseRedirectStep `json:"course_redirect"`
	Markup         Markup             `json:"markup"`
}

// DefaultFields returns the field lists compiled into the binary.
func DefaultFields() Fields {
	fields, err := ParseFields(defaultFieldsFile)
	if err != nil {
		panic(fmt.Sprintf("embedded fields.json5 is invalid: %s", err.Error()))
	}
	return fields
}

func ParseFields(contents []byte) (Fields, error) {
	var fields Fields
	err := json5.Unmarshal(contents, &fields)
	if err != nil {
		return Fields{}, fmt.Errorf("parse fields: %w", err)
	}
	err = fields.Validate()
	if err != nil {
		return Fields{}, err
	}
	return fields, nil
}

// LoadFieldsFile reads a fields override. An empty path yields the defaults.
func LoadFieldsFile(path string) (Fields, error) {
	if path == "" {
		return DefaultFields(), nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return Fields{}, fmt.Errorf("read fields: %w", err)
	}
	return ParseFields(contents)
}

func (f Fields) Validate() error {
	switch {
	case f.Version <= 0:
		return fmt.Errorf("fields: version must be positive, got %d", f.Version)
	case f.Login.Credentials.Identifier == "" || f.Login.Credentials.Secret == "":
		return fmt.Errorf("fields: login credential field names are required")
	case len(f.Login.Fields) == 0:
		return fmt.Errorf("fields: login field list is empty")
	case len(f.LoginRedirect.Fields) == 0:
		return fmt.Errorf("fields: login_redirect field list is empty")
	case len(f.CourseDetail.Fields) == 0 || len(f.CourseDetail.CourseFields) == 0:
		return fmt.Errorf("fields: course_detail field lists are empty")
	case len(f.CourseRedirect.Fields) == 0:
		return fmt.Errorf("fields: course_redirect field list is empty")
	}

	m := f.Markup
	for name, sel := range map[string]string{
		"course_box":         m.CourseBox,
		"course_date":        m.CourseDate,
		"course_title":       m.CourseTitle,
		"course_handler":     m.CourseHandler,
		"lecture_block":      m.LectureBlock,
		"lecture_title":      m.LectureTitle,
		"lecture_title_attr": m.LectureTitleAttr,
		"login_marker":       m.LoginMarker,
	} {
		if sel == "" {
			return fmt.Errorf("fields: markup.%s is required", name)
		}
	}
	return nil
}

// FindValueByName returns the value attribute of the first element in doc
// whose name attribute equals name. An element without a value attribute
// yields "".
func FindValueByName(doc *goquery.Selection, name string) (string, error) {
	match := doc.Find("[name]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == name
	}).First()
	if match.Length() == 0 {
		return "", ErrFieldNotFound
	}
	return match.AttrOr("value", ""), nil
}

// lookup is a field name plus the names to try, in order, when the server
// renders the field under a different name.
type lookup struct {
	name      string
	fallbacks []string
}

func (l lookup) find(doc *goquery.Selection) (string, error) {
	value, err := FindValueByName(doc, l.name)
	if err == nil {
		return value, nil
	}
	for _, alt := range l.fallbacks {
		value, err = FindValueByName(doc, alt)
		if err == nil {
			return value, nil
		}
	}
	return "", ErrFieldNotFound
}

// extractInto copies every named field from doc into params, stopping at the
// first field that cannot be found.
func extractInto(params url.Values, doc *goquery.Selection, step string, names []string, fallbacks map[string][]string) error {
	for _, name := range names {
		value, err := lookup{name: name, fallbacks: fallbacks[name]}.find(doc)
		if err != nil {
			return &FieldError{Step: step, Field: name}
		}
		params.Set(name, value)
	}
	return nil
}
