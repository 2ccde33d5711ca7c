package github

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// FieldKind tells which of the four value shapes a FieldValue holds.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindSingleSelect
	KindNumber
)

// FieldValue is the value of one custom field on one item.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Date   string
	Name   string // single-select option label
	Number float64
}

// String renders the value whatever its kind.
func (v FieldValue) String() string {
	switch v.Kind {
	case KindDate:
		return v.Date
	case KindSingleSelect:
		return v.Name
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return v.Text
	}
}

// fieldValueNode is one entry of an item's fieldValues connection. Value
// types the items query does not select decode as an empty object and are
// dropped (Field stays empty).
type fieldValueNode struct {
	Field string
	Value FieldValue
}

func (n *fieldValueNode) UnmarshalJSON(b []byte) error {
	var raw struct {
		Text   *string  `json:"text"`
		Date   *string  `json:"date"`
		Name   *string  `json:"name"`
		Number *float64 `json:"number"`
		Field  *struct {
			Name string `json:"name"`
		} `json:"field"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Field == nil {
		*n = fieldValueNode{}
		return nil
	}

	n.Field = raw.Field.Name
	switch {
	case raw.Text != nil:
		n.Value = FieldValue{Kind: KindText, Text: *raw.Text}
	case raw.Date != nil:
		n.Value = FieldValue{Kind: KindDate, Date: *raw.Date}
	case raw.Name != nil:
		n.Value = FieldValue{Kind: KindSingleSelect, Name: *raw.Name}
	case raw.Number != nil:
		n.Value = FieldValue{Kind: KindNumber, Number: *raw.Number}
	default:
		n.Field = ""
	}
	return nil
}

// Item is one row of a project board.
type Item struct {
	ID    string
	Title string
	URL   string
	// Number is the issue number parsed from URL, nil for drafts.
	Number *int
	// Assignees is nil when the item has no issue content to carry
	// assignees, and empty when the issue is unassigned.
	Assignees []string
	Fields    map[string]FieldValue
}

var issueNumberRe = regexp.MustCompile(`.*/issues/(\d+)`)

// IssueNumber extracts the trailing issue number from an issue URL.
func IssueNumber(url string) (int, bool) {
	m := issueNumberRe.FindStringSubmatch(url)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type itemNode struct {
	ID          string `json:"id"`
	FieldValues struct {
		Nodes []fieldValueNode `json:"nodes"`
	} `json:"fieldValues"`
	Content *struct {
		URL       string `json:"url"`
		Title     string `json:"title"`
		Assignees *struct {
			Nodes []struct {
				Login string `json:"login"`
			} `json:"nodes"`
		} `json:"assignees"`
	} `json:"content"`
}

func (n itemNode) item() Item {
	it := Item{ID: n.ID, Fields: make(map[string]FieldValue)}
	for _, fv := range n.FieldValues.Nodes {
		if fv.Field != "" {
			it.Fields[fv.Field] = fv.Value
		}
	}
	if title, ok := it.Fields["Title"]; ok {
		it.Title = title.String()
	}

	if n.Content != nil {
		it.URL = n.Content.URL
		if it.Title == "" {
			it.Title = n.Content.Title
		}
		if n.Content.Assignees != nil {
			it.Assignees = make([]string, 0, len(n.Content.Assignees.Nodes))
			for _, a := range n.Content.Assignees.Nodes {
				it.Assignees = append(it.Assignees, a.Login)
			}
		}
	}
	if num, ok := IssueNumber(it.URL); ok {
		it.Number = &num
	}
	return it
}

// Field is a project field definition.
type Field struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	DataType string        `json:"dataType"`
	Options  []FieldOption `json:"options,omitempty"`
}

// FieldOption is a single-select choice.
type FieldOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Milestone is a repository milestone from the REST API.
type Milestone struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	OpenIssues   int    `json:"open_issues"`
	ClosedIssues int    `json:"closed_issues"`
}

// Closable reports whether the milestone is still open although all of its
// issues are closed.
func (m Milestone) Closable() bool {
	return m.State == "open" && m.OpenIssues == 0 && m.ClosedIssues > 0
}

// Issue is the subset of the REST issue payload toggl2github reads.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}
