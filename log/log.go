// Package log provides the small key-value logging surface used across
// the module.
package log

import (
	"fmt"
	"log"
	"strings"
)

// Root is the logger used by components that were not handed one.
var Root Logger = &Default{}

// Logger is the logger interface. The variadic arguments are key value
// pairs. The key must be a string and the value should have a
// meaningful string representation.
type Logger interface {
	Debug(string, ...interface{})
	Error(string, ...interface{})
	Crit(string, ...interface{})
	With(...interface{}) Logger
}

// Default writes prefixed lines through the standard library logger.
type Default struct {
	Tags []interface{}
}

func (l *Default) Debug(m string, s ...interface{}) { log.Print(tfmt("DEB ", m, s, l.Tags)) }
func (l *Default) Error(m string, s ...interface{}) { log.Print(tfmt("ERR ", m, s, l.Tags)) }
func (l *Default) Crit(m string, s ...interface{})  { log.Print(tfmt("CRI ", m, s, l.Tags)) }
func (l *Default) With(tags ...interface{}) Logger {
	t := make([]interface{}, 0, len(tags)+len(l.Tags))
	t = append(t, tags...)
	t = append(t, l.Tags...)
	return &Default{Tags: t}
}

// Discard drops everything; handy for quiet tests.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...interface{}) {}
func (discard) Error(string, ...interface{}) {}
func (discard) Crit(string, ...interface{})  {}
func (discard) With(...interface{}) Logger   { return Discard }

func tfmt(lvl, msg string, all ...[]interface{}) string {
	var b strings.Builder
	b.WriteString(lvl)
	b.WriteString(msg)
	for _, tags := range all {
		for i, v := range tags {
			if i%2 == 0 {
				b.WriteByte(' ')
			} else {
				b.WriteByte('=')
			}
			b.WriteString(fmt.Sprint(v))
		}
	}
	return b.String()
}
