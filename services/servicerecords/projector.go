package servicerecords

import (
	"sysaid-bridge/lib/scrapers/sysaid"
)

// RequiredFieldSet is the ordered set of captions kept from each record.
type RequiredFieldSet struct {
	names []string
	index map[string]struct{}
}

func NewRequiredFieldSet(names ...string) RequiredFieldSet {
	set := RequiredFieldSet{index: make(map[string]struct{}, len(names))}
	for _, name := range names {
		_, exists := set.index[name]
		if exists {
			continue
		}
		set.index[name] = struct{}{}
		set.names = append(set.names, name)
	}
	return set
}

func (s RequiredFieldSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s RequiredFieldSet) Names() []string {
	return append([]string(nil), s.names...)
}

func (s RequiredFieldSet) Len() int {
	return len(s.names)
}

var DefaultRequiredFields = NewRequiredFieldSet(
	"Request time",
	"Company",
	"Admin group",
	"Category",
	"Survey Status",
	"Service Record Type",
	"Status",
	"Close time",
	"Due Date",
	"Time to Repair",
	"Time Waiting on End User",
	"Time waiting on Vendor",
	"Assigned to",
	"Priority",
)

// ProjectedRecord maps a required caption to its value, nil encodes as
// json null. captions absent from the source record are absent here too.
type ProjectedRecord map[string]*string

type Projector struct {
	fields RequiredFieldSet
}

func NewProjector(fields RequiredFieldSet) Projector {
	return Projector{fields: fields}
}

// Project never fails, the output has the same length and order as
// `records`.
func (p Projector) Project(records []sysaid.RawRecord) []ProjectedRecord {
	out := make([]ProjectedRecord, len(records))
	for i, record := range records {
		out[i] = p.ProjectRecord(record)
	}
	return out
}

// ProjectRecord keeps the entries whose caption is required, a caption
// repeated within one record takes its last value.
func (p Projector) ProjectRecord(record sysaid.RawRecord) ProjectedRecord {
	out := ProjectedRecord{}
	entries, ok := record.Entries()
	if !ok {
		return out
	}
	for _, entry := range entries {
		if !p.fields.Contains(entry.KeyCaption) {
			continue
		}
		out[entry.KeyCaption] = entry.ValueCaption
	}
	return out
}

var defaultProjector = NewProjector(DefaultRequiredFields)

// Project projects onto DefaultRequiredFields.
func Project(records []sysaid.RawRecord) []ProjectedRecord {
	return defaultProjector.Project(records)
}
