// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"strings"
	"time"
)

// Message is a single log entry.
type Message struct {
	// The message text.
	Text string

	// The time the message was logged.
	Time time.Time

	// The severity of the message.
	Severity Severity

	// StopProcess is true if the message indicates the process should stop.
	StopProcess bool

	// The tag associated with the log record.
	Tag string

	// The trace-stack of the message, innermost first.
	Trace []string

	// The key-value pairs of extra data.
	Values Values
}

// Value is a name-value pair bound to a message.
type Value struct {
	Name  string
	Value interface{}
}

// Values is a list of name-value pairs, sortable by name.
type Values []*Value

func (v Values) Len() int           { return len(v) }
func (v Values) Less(i, j int) bool { return v[i].Name < v[j].Name }
func (v Values) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }

// String returns the values as a single line "(a: 1, b: 2)".
func (v Values) String() string {
	parts := make([]string, len(v))
	for i, v := range v {
		parts[i] = fmt.Sprintf("%v: %v", v.Name, v.Value)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Value returns the value bound to name, or nil.
func (m *Message) Value(name string) interface{} {
	for _, v := range m.Values {
		if v.Name == name {
			return v.Value
		}
	}
	return nil
}

// Style controls how a Message is printed.
type Style int

const (
	// Raw prints only the message text.
	Raw = Style(iota)
	// Brief prints the short severity and the text.
	Brief
	// Normal prints the time, short severity, trace, text and values on one line.
	Normal
	// Detailed prints everything, one value per line.
	Detailed
)

// Print returns the message formatted in the given style.
func (s Style) Print(m *Message) string {
	if s == Raw {
		return m.Text
	}
	sb := strings.Builder{}
	if s >= Normal && !m.Time.IsZero() {
		sb.WriteString(m.Time.Format("15:04:05.000 "))
	}
	if s >= Detailed {
		sb.WriteString(m.Severity.String())
	} else {
		sb.WriteString(m.Severity.Short())
	}
	if m.Tag != "" {
		fmt.Fprintf(&sb, " [%s]", m.Tag)
	}
	sb.WriteString(": ")
	if s >= Normal && len(m.Trace) > 0 {
		for i := len(m.Trace) - 1; i >= 0; i-- {
			sb.WriteString(m.Trace[i])
			sb.WriteString(" → ")
		}
	}
	sb.WriteString(m.Text)
	switch {
	case s == Normal && len(m.Values) > 0:
		sb.WriteString(" ")
		sb.WriteString(m.Values.String())
	case s == Detailed:
		for _, v := range m.Values {
			fmt.Fprintf(&sb, "\n  %v: %v", v.Name, v.Value)
		}
	}
	return sb.String()
}
