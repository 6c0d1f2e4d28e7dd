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
	"io"
	"sync"
)

// Handler is the handler of log messages.
type Handler interface {
	Handle(*Message)
	Close()
}

type handler struct {
	handle func(*Message)
	close  func()
}

func (h handler) Handle(m *Message) { h.handle(m) }
func (h handler) Close() {
	if h.close != nil {
		h.close()
	}
}

// NewHandler returns a Handler that calls handle for each message logged and
// close when the handler is closed.
func NewHandler(handle func(*Message), close func()) Handler {
	return handler{handle, close}
}

// Writer returns a Handler that prints each message in the given style to w.
func Writer(style Style, w io.Writer) Handler {
	mutex := sync.Mutex{}
	return handler{
		handle: func(m *Message) {
			mutex.Lock()
			defer mutex.Unlock()
			fmt.Fprintln(w, style.Print(m))
		},
	}
}

// Fork returns a Handler that forwards each message to all of handlers.
func Fork(handlers ...Handler) Handler {
	return handler{
		handle: func(m *Message) {
			for _, h := range handlers {
				h.Handle(m)
			}
		},
		close: func() {
			for _, h := range handlers {
				h.Close()
			}
		},
	}
}

// Recorder is a Handler that keeps every message it is given.
// It is safe for concurrent use.
type Recorder struct {
	mutex    sync.Mutex
	messages []*Message
}

func (r *Recorder) Handle(m *Message) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.messages = append(r.messages, m)
}

func (r *Recorder) Close() {}

// Messages returns the messages recorded so far.
func (r *Recorder) Messages() []*Message {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]*Message{}, r.messages...)
}

// Count returns the number of recorded messages at exactly severity s.
func (r *Recorder) Count(s Severity) int {
	n := 0
	for _, m := range r.Messages() {
		if m.Severity == s {
			n++
		}
	}
	return n
}
