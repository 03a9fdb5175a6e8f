package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AccessLogHeader is the CSV header row, one column per AccessLog.CSVRow value.
var AccessLogHeader = []string{
	"ID", "Timestamp", "User ID", "User Name", "User Email",
	"IP Address", "Method", "URL", "Status",
}

// AccessLog is one record of the access_logs endpoint, enriched with the
// identity of the user who made the request. Fields keep whatever JSON value
// the API sent.
type AccessLog struct {
	ID         Field      `json:"id"`
	Timestamp  Field      `json:"timestamp"`
	UserID     Field      `json:"user_id"`
	IPAddress  Field      `json:"ip_address"`
	Method     Field      `json:"method"`
	URL        Field      `json:"url"`
	Status     Field      `json:"status"`
	MappedUser MappedUser `json:"-"`

	raw json.RawMessage
}

// accessLogFields has AccessLog's fields without its methods.
type accessLogFields AccessLog

// DecodeAccessLog decodes one API record and keeps the original object so
// that it can be re-emitted with its keys in API order. Only a record that
// is not a JSON object is rejected.
func DecodeAccessLog(raw json.RawMessage) (AccessLog, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return AccessLog{}, fmt.Errorf("decode access log: record is not a JSON object")
	}
	var fields accessLogFields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return AccessLog{}, fmt.Errorf("decode access log: %w", err)
	}
	l := AccessLog(fields)
	l.raw = append(json.RawMessage(nil), raw...)
	return l, nil
}

// Enrich attaches the identity of l.UserID from dir. A missing or
// non-integer user id maps to UnknownUser.
func (l *AccessLog) Enrich(dir *Directory) {
	id, ok := l.UserID.Int64()
	if !ok {
		l.MappedUser = UnknownUser
		return
	}
	l.MappedUser = dir.Lookup(id)
}

// MarshalJSON emits the original API object with "mapped_user" appended as
// the last key. Records built in code fall back to their typed fields.
func (l AccessLog) MarshalJSON() ([]byte, error) {
	base := l.raw
	if len(base) == 0 {
		b, err := json.Marshal(accessLogFields(l))
		if err != nil {
			return nil, err
		}
		base = b
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, base); err != nil {
		return nil, fmt.Errorf("access log %s: %w", l.ID, err)
	}
	obj := compact.Bytes()
	if len(obj) < 2 || obj[0] != '{' || obj[len(obj)-1] != '}' {
		return nil, fmt.Errorf("access log %s: record is not a JSON object", l.ID)
	}

	mapped, err := json.Marshal(l.MappedUser)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(obj)+len(mapped)+16)
	out = append(out, obj[:len(obj)-1]...)
	if len(obj) > 2 {
		out = append(out, ',')
	}
	out = append(out, `"mapped_user":`...)
	out = append(out, mapped...)
	out = append(out, '}')
	return out, nil
}

// CSVRow renders the record in AccessLogHeader column order. Null values
// become empty cells.
func (l AccessLog) CSVRow() []string {
	return []string{
		l.ID.String(),
		l.Timestamp.String(),
		l.UserID.String(),
		l.MappedUser.Name,
		l.MappedUser.Email,
		l.IPAddress.String(),
		l.Method.String(),
		l.URL.String(),
		l.Status.String(),
	}
}
