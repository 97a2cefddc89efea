package jetstream

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const (
	EventKindCommit   = "commit"
	EventKindAccount  = "account"
	EventKindIdentity = "identity"

	CommitOperationCreate = "create"
	CommitOperationUpdate = "update"
	CommitOperationDelete = "delete"

	ProfileCollection = "app.bsky.actor.profile"
)

// Event is a single Jetstream frame, decoded from JSON.
type Event struct {
	Did    string  `json:"did"`
	TimeUS int64   `json:"time_us"`
	Kind   string  `json:"kind"`
	Commit *Commit `json:"commit,omitempty"`
}

type Commit struct {
	Rev        string          `json:"rev,omitempty"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	RawRecord  json.RawMessage `json:"record,omitempty"`
	CID        string          `json:"cid,omitempty"`

	// Record is only populated by DecodeEvent, for profile records.
	Record *ProfileRecord `json:"-"`
}

// ProfileRecord is an app.bsky.actor.profile record. Only DisplayName and Labels are used for matching.
type ProfileRecord struct {
	Type        string   `json:"$type"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	Avatar      *BlobRef `json:"avatar,omitempty"`
	Banner      *BlobRef `json:"banner,omitempty"`
	Labels      *Labels  `json:"labels,omitempty"`
}

type BlobRef struct {
	Type     string  `json:"$type"`
	Ref      LexLink `json:"ref"`
	MimeType string  `json:"mimeType"`
	Size     int64   `json:"size"`
}

type LexLink struct {
	Link string `json:"$link"`
}

type Label struct {
	Val string `json:"val"`
}

// Labels accepts both the lexicon object form ({"$type": "com.atproto.label.defs#selfLabels", "values": [...]}) and
// a bare array of label objects.
type Labels struct {
	Type   string  `json:"$type,omitempty"`
	Values []Label `json:"values"`
}

func (l *Labels) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty labels value")
	}
	switch b[0] {
	case '[':
		var vals []Label
		if err := json.Unmarshal(b, &vals); err != nil {
			return err
		}
		l.Values = vals
		return nil
	case '{':
		type plain Labels
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*l = Labels(p)
		return nil
	case 'n':
		return nil
	default:
		return fmt.Errorf("labels must be an object or array")
	}
}

// Len returns the number of labels carried. Safe to call on a nil receiver.
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Values)
}

func (e *Event) Time() time.Time {
	return time.UnixMicro(e.TimeUS)
}

// Actionable reports whether the event is a create or update of an unlabeled profile record, the only kind of event
// which flows on to matching.
func (e *Event) Actionable() bool {
	if e == nil || e.Kind != EventKindCommit || e.Commit == nil {
		return false
	}
	c := e.Commit
	if c.Operation != CommitOperationCreate && c.Operation != CommitOperationUpdate {
		return false
	}
	if c.Collection != ProfileCollection || c.Record == nil {
		return false
	}
	return c.Record.Labels.Len() == 0
}
