package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// LocalizedLabel is a maintenance label in both supported languages.
type LocalizedLabel struct {
	EN string `json:"en"`
	FR string `json:"fr"`
}

// TaskLabel is either a plain label or a bilingual one.
// Exactly one form is set; Localized wins when both are.
type TaskLabel struct {
	Text      string
	Localized *LocalizedLabel
}

// PlainLabel returns a single-language label.
func PlainLabel(text string) TaskLabel {
	return TaskLabel{Text: text}
}

// BilingualLabel returns an English/French label.
func BilingualLabel(en, fr string) TaskLabel {
	return TaskLabel{Localized: &LocalizedLabel{EN: en, FR: fr}}
}

// IsBilingual reports whether the label carries both languages.
func (l TaskLabel) IsBilingual() bool {
	return l.Localized != nil
}

// String returns the plain text, or the English text of a bilingual label.
func (l TaskLabel) String() string {
	if l.Localized != nil {
		return l.Localized.EN
	}
	return l.Text
}

// Empty reports whether the label has no usable text.
func (l TaskLabel) Empty() bool {
	if l.Localized != nil {
		return strings.TrimSpace(l.Localized.EN) == "" && strings.TrimSpace(l.Localized.FR) == ""
	}
	return strings.TrimSpace(l.Text) == ""
}

// MarshalJSON implements json.Marshaler.
func (l TaskLabel) MarshalJSON() ([]byte, error) {
	if l.Localized != nil {
		return json.Marshal(l.Localized)
	}
	return json.Marshal(l.Text)
}

// UnmarshalJSON implements json.Unmarshaler. It accepts a string or an {en, fr} object.
func (l *TaskLabel) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = TaskLabel{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = PlainLabel(s)
		return nil
	case b[0] == '{':
		var loc LocalizedLabel
		if err := json.Unmarshal(b, &loc); err != nil {
			return err
		}
		*l = TaskLabel{Localized: &loc}
		return nil
	}
	return errors.New("task label must be a string or an {en, fr} object")
}
