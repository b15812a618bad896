package view

import (
	"bytes"
	"html/template"
)

// Input holds the pass-through attributes of the wrapped input element.
type Input struct {
	Name         string
	Type         string
	Placeholder  string
	Value        string
	Checked      bool
	Autocomplete string

	// SubmitOnChange posts the enclosing form when a checkbox flips so the
	// Register button can reflect the agreement without client code.
	SubmitOnChange bool
}

// IsCheckbox reports whether the input renders as a checkbox.
func (i Input) IsCheckbox() bool {
	return i.Type == "checkbox"
}

// FieldSet is a labelled input with an optional icon, required marker and
// hint. It owns no state: value and checked come from the caller.
type FieldSet struct {
	Label    string
	Required bool
	Hint     string
	Icon     string
	Input    Input
}

// ID is the element id used to tie the label to the input.
func (f FieldSet) ID() string {
	return "field-" + f.Input.Name
}

// Render produces the HTML fragment for f.
func (f FieldSet) Render() (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "fieldset", f); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
