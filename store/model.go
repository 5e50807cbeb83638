package store

import (
	"errors"
	"strconv"
	"time"
)

// Record is a single refresh-token record. Only the Used and Revoked flags
// and their companion fields change after creation; everything else is fixed
// at mint time.
type Record struct {
	ID          string
	SecretHash  string
	JWTID       string
	UserID      string
	Family      string
	Version     int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CreatedByIP string
	UserAgent   string

	Used          bool
	UsedAt        time.Time
	Revoked       bool
	RevokedAt     time.Time
	RevokedReason string
	RevokedByIP   string
}

// IsExpired reports whether the record is past its expiry at the given time.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsActive reports whether the record can still be rotated: unused,
// unrevoked, unexpired.
func (r *Record) IsActive(now time.Time) bool {
	return !r.Used && !r.Revoked && now.Before(r.ExpiresAt)
}

// BlacklistEntry denylists a single access token by its jti until the token's
// own expiry (or indefinitely when Permanent).
type BlacklistEntry struct {
	JWTID     string
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Reason    string
	Type      string
	Permanent bool
}

// SecurityEvent is an immutable, risk-scored audit record. Processed is the
// only field that changes after append, via MarkEventProcessed.
type SecurityEvent struct {
	ID                    string
	EventType             string
	Severity              string
	UserID                string
	IP                    string
	Timestamp             time.Time
	Success               bool
	RiskScore             float64
	RequiresInvestigation bool
	Processed             bool
	Detail                string
}

// EventFilter narrows a security-event query. Zero values mean "no filter".
// Limit <= 0 applies the store default page size.
type EventFilter struct {
	From                  time.Time
	To                    time.Time
	EventType             string
	UserID                string
	Severity              string
	RequiresInvestigation *bool
	Offset                int
	Limit                 int
}

func encodeRecord(r *Record) []interface{} {
	return []interface{}{
		"id", r.ID,
		"secret_hash", r.SecretHash,
		"jwt_id", r.JWTID,
		"user_id", r.UserID,
		"family", r.Family,
		"version", strconv.Itoa(r.Version),
		"created_at_ms", strconv.FormatInt(r.CreatedAt.UnixMilli(), 10),
		"expires_at_ms", strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10),
		"created_ip", r.CreatedByIP,
		"user_agent", r.UserAgent,
		"used", boolField(r.Used),
		"used_at_ms", strconv.FormatInt(timeMilli(r.UsedAt), 10),
		"revoked", boolField(r.Revoked),
		"revoked_at_ms", strconv.FormatInt(timeMilli(r.RevokedAt), 10),
		"revoked_reason", r.RevokedReason,
		"revoked_ip", r.RevokedByIP,
	}
}

func decodeRecord(fields map[string]string) (*Record, error) {
	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}
	if fields["id"] == "" || fields["family"] == "" {
		return nil, errors.New("record hash missing identity fields")
	}

	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, errors.New("record hash has invalid version")
	}

	createdAt, err := parseMilli(fields["created_at_ms"])
	if err != nil {
		return nil, errors.New("record hash has invalid created_at")
	}
	expiresAt, err := parseMilli(fields["expires_at_ms"])
	if err != nil {
		return nil, errors.New("record hash has invalid expires_at")
	}
	usedAt, err := parseMilli(fields["used_at_ms"])
	if err != nil {
		return nil, errors.New("record hash has invalid used_at")
	}
	revokedAt, err := parseMilli(fields["revoked_at_ms"])
	if err != nil {
		return nil, errors.New("record hash has invalid revoked_at")
	}

	return &Record{
		ID:            fields["id"],
		SecretHash:    fields["secret_hash"],
		JWTID:         fields["jwt_id"],
		UserID:        fields["user_id"],
		Family:        fields["family"],
		Version:       version,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		CreatedByIP:   fields["created_ip"],
		UserAgent:     fields["user_agent"],
		Used:          fields["used"] == "1",
		UsedAt:        usedAt,
		Revoked:       fields["revoked"] == "1",
		RevokedAt:     revokedAt,
		RevokedReason: fields["revoked_reason"],
		RevokedByIP:   fields["revoked_ip"],
	}, nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func timeMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func parseMilli(s string) (time.Time, error) {
	if s == "" || s == "0" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
