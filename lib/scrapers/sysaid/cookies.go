package sysaid

import (
	"log/slog"
	"strings"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Bool("password_set", c.Password != ""),
	)
}

type Cookie struct {
	Name  string
	Value string
}

// CookieJar is an ordered name -> value mapping of session cookies.
// it is forwarded verbatim and never interpreted.
type CookieJar []Cookie

// NewCookieJar collapses repeated names, a repeated name keeps the
// position of its first occurrence and the value of its last.
func NewCookieJar(cookies []Cookie) CookieJar {
	jar := make(CookieJar, 0, len(cookies))
	index := make(map[string]int, len(cookies))
	for _, c := range cookies {
		i, exists := index[c.Name]
		if exists {
			jar[i].Value = c.Value
			continue
		}
		index[c.Name] = len(jar)
		jar = append(jar, c)
	}
	return jar
}

func (j CookieJar) Get(name string) (string, bool) {
	for _, c := range j {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func (j CookieJar) Names() []string {
	names := make([]string, len(j))
	for i, c := range j {
		names[i] = c.Name
	}
	return names
}

// Header serializes the jar for a Cookie request header.
func (j CookieJar) Header() string {
	var out strings.Builder
	for i, c := range j {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(c.Name)
		out.WriteByte('=')
		out.WriteString(c.Value)
	}
	return out.String()
}

func (j CookieJar) String() string {
	return "CookieJar[" + strings.Join(j.Names(), ", ") + "]"
}

func (j CookieJar) LogValue() slog.Value {
	return slog.AnyValue(j.Names())
}
