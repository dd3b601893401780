package domain

import (
	"errors"
	"time"
)

// ReportDocument is a report as persisted: the raw document plus ownership.
// documents are append-only; the store never rewrites fields of older ones.
type ReportDocument struct {
	id             ReportID
	congregationID CongregationID
	memberID       *MemberID // optional, older clients never sent it
	fields         RawRecord
	createdAt      time.Time
}

var ErrReportCongregationEmpty = errors.New("report must belong to a congregation")

// NewReportDocument builds the document for a fresh submission.
// the stored fields carry the date, the submission timestamp and a cached week key.
func NewReportDocument(congregationID CongregationID, memberID *MemberID, report Report, submittedAt time.Time) (*ReportDocument, error) {
	if congregationID.IsZero() {
		return nil, ErrReportCongregationEmpty
	}

	id := NewReportID()
	fields := report.WithID(id.String()).Record()
	fields[FieldSubmittedAt] = submittedAt.UTC().Format(time.RFC3339)
	if memberID != nil {
		fields[FieldMemberID] = memberID.String()
	}

	return &ReportDocument{
		id:             id,
		congregationID: congregationID,
		memberID:       memberID,
		fields:         fields,
		createdAt:      submittedAt.UTC(),
	}, nil
}

// ID returns the document id.
func (d *ReportDocument) ID() ReportID {
	return d.id
}

// CongregationID returns the owning congregation.
func (d *ReportDocument) CongregationID() CongregationID {
	return d.congregationID
}

// MemberID returns the submitting member, nil when unknown.
func (d *ReportDocument) MemberID() *MemberID {
	return d.memberID
}

// Fields returns the raw document fields.
func (d *ReportDocument) Fields() RawRecord {
	return d.fields
}

// CreatedAt returns when the document was stored.
func (d *ReportDocument) CreatedAt() time.Time {
	return d.createdAt
}

// Raw returns the fields with the document id set, ready for Normalize.
func (d *ReportDocument) Raw() RawRecord {
	raw := make(RawRecord, len(d.fields)+1)
	for k, v := range d.fields {
		raw[k] = v
	}
	raw[FieldID] = d.id.String()
	return raw
}
