package sysaid

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCookieJar(t *testing.T) {
	jar := NewCookieJar([]Cookie{
		{Name: "JSESSIONID", Value: "first"},
		{Name: "SERVERID", Value: "s1"},
		{Name: "JSESSIONID", Value: "second"},
	})

	require.Equal(t, []string{"JSESSIONID", "SERVERID"}, jar.Names())
	require.Equal(t, "JSESSIONID=second; SERVERID=s1", jar.Header())

	value, ok := jar.Get("JSESSIONID")
	require.True(t, ok)
	require.Equal(t, "second", value)

	_, ok = jar.Get("missing")
	require.False(t, ok)
}

func TestCookieJarEmptyHeader(t *testing.T) {
	require.Equal(t, "", NewCookieJar(nil).Header())
}

func TestSessionMaterialIsNotLogged(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	jar := NewCookieJar([]Cookie{{Name: "JSESSIONID", Value: "topsecret"}})
	logger.Info("session", "cookies", jar, "creds", Credentials{Username: "agent", Password: "hunter2"})

	logged := out.String()
	require.True(t, strings.Contains(logged, "JSESSIONID"), logged)
	require.True(t, strings.Contains(logged, "agent"), logged)
	require.False(t, strings.Contains(logged, "topsecret"), logged)
	require.False(t, strings.Contains(logged, "hunter2"), logged)
	require.NotContains(t, jar.String(), "topsecret")
}
