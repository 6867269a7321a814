package sysaid

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestRecordEntries(t *testing.T) {
	var records []RawRecord
	err := json.Unmarshal([]byte(`[
		{"id": 1, "info": [
			{"keyCaption": "Priority", "valueCaption": "High"},
			{"keyCaption": "Status", "valueCaption": null},
			{"keyCaption": "Company", "valueCaption": ""},
			{"keyCaption": "Time to Repair", "valueCaption": 42},
			{"keyCaption": "Admin group"},
			{"keyCaption": 7, "valueCaption": "skipped"},
			"not an entry"
		]},
		{"id": 2, "info": "nope"},
		{"id": 3},
		"not a record",
		{"info": []}
	]`), &records)
	require.NoError(t, err)
	require.Len(t, records, 5)

	entries, ok := records[0].Entries()
	require.True(t, ok)
	expect := []InfoEntry{
		{KeyCaption: "Priority", ValueCaption: ptr("High")},
		{KeyCaption: "Status"},
		{KeyCaption: "Company"},
		{KeyCaption: "Time to Repair", ValueCaption: ptr("42")},
		{KeyCaption: "Admin group"},
	}
	if diff := cmp.Diff(expect, entries); diff != "" {
		t.Fatal(diff)
	}

	for _, i := range []int{1, 2, 3} {
		_, ok := records[i].Entries()
		require.False(t, ok, "record %d", i)
	}

	entries, ok = records[4].Entries()
	require.True(t, ok)
	require.Empty(t, entries)
}

func TestDecodeCaptionFalsyScalars(t *testing.T) {
	cases := map[string]*string{
		`0`:        nil,
		`0.0`:      nil,
		`-0`:       nil,
		`false`:    nil,
		`null`:     nil,
		`""`:       nil,
		`42`:       ptr("42"),
		`true`:     ptr("true"),
		`"0"`:      ptr("0"),
		`{"a": 1}`: ptr(`{"a":1}`),
		`[1, 2]`:   ptr("[1,2]"),
	}
	for raw, expect := range cases {
		require.Equal(t, expect, decodeCaption(json.RawMessage(raw)), raw)
	}
}
