package github

import (
	"encoding/json"
	"fmt"
	"strings"
)

// pageSize bounds items, fields and field values per query. Boards larger
// than this are truncated.
const pageSize = 100

// maxAssignees bounds the assignee logins fetched per issue.
const maxAssignees = 10

// FieldType is the key used inside ProjectV2FieldValue.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldDate         FieldType = "date"
	FieldSingleSelect FieldType = "singleSelectOptionId"
	FieldNumber       FieldType = "number"
)

// ParseFieldType accepts the GraphQL value keys as well as short names such
// as "single-select".
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(s) {
	case "text":
		return FieldText, nil
	case "date":
		return FieldDate, nil
	case "single-select", "single_select", "singleselect", "singleselectoptionid":
		return FieldSingleSelect, nil
	case "number":
		return FieldNumber, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// quote renders s as a GraphQL string literal. GraphQL string escapes are a
// superset of what encoding/json emits.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func projectIDQuery(user string, number int) string {
	return fmt.Sprintf(`query ProjectID { user(login: %s) { projectV2(number: %d) { id } } }`, quote(user), number)
}

func projectItemsQuery(projectID string) string {
	return fmt.Sprintf(`query ProjectItems {
  node(id: %[1]s) {
    ... on ProjectV2 {
      items(first: %[2]d) {
        nodes {
          id
          fieldValues(first: %[2]d) {
            nodes {
              ... on ProjectV2ItemFieldTextValue { text field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldDateValue { date field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldSingleSelectValue { name field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldNumberValue { number field { ... on ProjectV2FieldCommon { name } } }
            }
          }
          content {
            ... on Issue { url title assignees(first: %[3]d) { nodes { login } } }
          }
        }
      }
    }
  }
}`, quote(projectID), pageSize, maxAssignees)
}

func projectFieldsQuery(projectID string) string {
	return fmt.Sprintf(`query ProjectFields {
  node(id: %s) {
    ... on ProjectV2 {
      fields(first: %d) {
        nodes {
          ... on ProjectV2FieldCommon { id name dataType }
          ... on ProjectV2SingleSelectField { options { id name } }
        }
      }
    }
  }
}`, quote(projectID), pageSize)
}

// updateFieldValueMutation builds the single-field update. Text and date
// values are always quoted. Other types are inlined verbatim unless empty, in
// which case they are quoted as well; inlined values may not carry characters
// that would break out of the value position.
func updateFieldValueMutation(projectID, itemID, fieldID string, ft FieldType, value string) (string, error) {
	switch ft {
	case FieldText, FieldDate, FieldSingleSelect, FieldNumber:
	default:
		return "", fmt.Errorf("unknown field type %q", string(ft))
	}

	var literal string
	if ft == FieldText || ft == FieldDate || value == "" {
		literal = quote(value)
	} else {
		if strings.ContainsAny(value, "\"{}\\\n\r") {
			return "", fmt.Errorf("value %q cannot be inlined as %s", value, ft)
		}
		literal = value
	}

	return fmt.Sprintf(`mutation UpdateFieldValue {
  updateProjectV2ItemFieldValue(
    input: {
      projectId: %s
      itemId: %s
      fieldId: %s
      value: { %s: %s }
    }
  ) { projectV2Item { id } }
}`, quote(projectID), quote(itemID), quote(fieldID), ft, literal), nil
}
