package servicerecords

import (
	"encoding/json"
	"sysaid-bridge/lib/scrapers/sysaid"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func parseRecords(t testing.TB, body string) []sysaid.RawRecord {
	t.Helper()
	var records []sysaid.RawRecord
	err := json.Unmarshal([]byte(body), &records)
	require.NoError(t, err)
	return records
}

func TestProjectKeepsRequiredFields(t *testing.T) {
	records := parseRecords(t, `[{"info": [
		{"keyCaption": "Priority", "valueCaption": "High"},
		{"keyCaption": "Unused", "valueCaption": "x"}
	]}]`)

	out := Project(records)
	expect := []ProjectedRecord{{"Priority": ptr("High")}}
	if diff := cmp.Diff(expect, out); diff != "" {
		t.Fatal(diff)
	}

	body, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `[{"Priority": "High"}]`, string(body))
}

func TestProjectNullValue(t *testing.T) {
	records := parseRecords(t, `[{"info": [{"keyCaption": "Status", "valueCaption": null}]}]`)

	out := Project(records)
	require.Len(t, out, 1)
	value, present := out[0]["Status"]
	require.True(t, present)
	require.Nil(t, value)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `[{"Status": null}]`, string(body))
}

func TestProjectEmptyStringIsNull(t *testing.T) {
	records := parseRecords(t, `[{"info": [{"keyCaption": "Company", "valueCaption": ""}]}]`)
	body, err := json.Marshal(Project(records))
	require.NoError(t, err)
	require.JSONEq(t, `[{"Company": null}]`, string(body))
}

func TestProjectLastDuplicateWins(t *testing.T) {
	records := parseRecords(t, `[{"info": [
		{"keyCaption": "Status", "valueCaption": "Open"},
		{"keyCaption": "Status", "valueCaption": "Closed"}
	]}]`)
	out := Project(records)
	require.Equal(t, "Closed", *out[0]["Status"])
}

func TestProjectMalformedInfo(t *testing.T) {
	records := parseRecords(t, `[
		{"info": "not a list"},
		{"id": 12},
		{"info": [1, 2, {"keyCaption": 3}]},
		{"info": [{"keyCaption": "Priority", "valueCaption": "Low"}]}
	]`)

	out := Project(records)
	expect := []ProjectedRecord{{}, {}, {}, {"Priority": ptr("Low")}}
	if diff := cmp.Diff(expect, out); diff != "" {
		t.Fatal(diff)
	}
}

func TestProjectPreservesOrderAndCardinality(t *testing.T) {
	records := parseRecords(t, `[
		{"info": [{"keyCaption": "Priority", "valueCaption": "1"}]},
		{"info": []},
		{"info": [{"keyCaption": "Priority", "valueCaption": "3"}]}
	]`)

	out := Project(records)
	require.Len(t, out, 3)
	require.Equal(t, "1", *out[0]["Priority"])
	require.Empty(t, out[1])
	require.Equal(t, "3", *out[2]["Priority"])

	body, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `[{"Priority": "1"}, {}, {"Priority": "3"}]`, string(body))
}

func TestProjectIsIdempotent(t *testing.T) {
	records := parseRecords(t, `[{"info": [
		{"keyCaption": "Request time", "valueCaption": "01/02/2024 10:00"},
		{"keyCaption": "Assigned to", "valueCaption": "agent"},
		{"keyCaption": "Due Date", "valueCaption": null},
		{"keyCaption": "Notes", "valueCaption": "ignored"}
	]}]`)

	first := Project(records)
	second := Project(records)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal(diff)
	}
}

func TestProjectEmptyInput(t *testing.T) {
	out := Project(nil)
	require.NotNil(t, out)
	require.Empty(t, out)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
}

func TestDefaultRequiredFields(t *testing.T) {
	require.Equal(t, 14, DefaultRequiredFields.Len())
	require.True(t, DefaultRequiredFields.Contains("Time waiting on Vendor"))
	require.False(t, DefaultRequiredFields.Contains("time waiting on vendor"))

	set := NewRequiredFieldSet("a", "b", "a")
	require.Equal(t, []string{"a", "b"}, set.Names())
}

func TestCustomProjector(t *testing.T) {
	records := parseRecords(t, `[{"info": [
		{"keyCaption": "Priority", "valueCaption": "High"},
		{"keyCaption": "Title", "valueCaption": "Printer on fire"}
	]}]`)

	projector := NewProjector(NewRequiredFieldSet("Title"))
	out := projector.Project(records)
	expect := []ProjectedRecord{{"Title": ptr("Printer on fire")}}
	if diff := cmp.Diff(expect, out); diff != "" {
		t.Fatal(diff)
	}
}
