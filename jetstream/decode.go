package jetstream

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/imposterwatch/imposterwatch/syntax"
)

// DecodeEvent parses a raw frame into an Event. Any problem with the payload, including a panic inside the JSON
// decoder, is returned as a *DecodeError; a partially decoded event is never returned.
func DecodeEvent(payload []byte) (evt *Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			evt = nil
			err = &DecodeError{Payload: payload, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &DecodeError{Payload: payload, Err: errors.New("empty payload")}
	}

	var out Event
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}
	if err := validateEvent(&out); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}
	return &out, nil
}

func validateEvent(evt *Event) error {
	if _, err := syntax.ParseDID(evt.Did); err != nil {
		return fmt.Errorf("invalid did %q: %w", evt.Did, err)
	}
	if evt.Kind == "" {
		return errors.New("missing event kind")
	}
	if evt.Kind != EventKindCommit {
		// other kinds pass through as non-actionable; a stray commit field is meaningless
		evt.Commit = nil
		return nil
	}

	c := evt.Commit
	if c == nil {
		return errors.New("commit event without commit body")
	}
	switch c.Operation {
	case CommitOperationCreate, CommitOperationUpdate, CommitOperationDelete:
	default:
		return fmt.Errorf("unknown commit operation %q", c.Operation)
	}
	if c.Collection == "" {
		return errors.New("commit without collection")
	}
	if c.Operation == CommitOperationDelete || c.Collection != ProfileCollection {
		return nil
	}

	if len(c.RawRecord) == 0 || bytes.Equal(c.RawRecord, []byte("null")) {
		return fmt.Errorf("%s of %s without record", c.Operation, c.Collection)
	}
	var rec ProfileRecord
	if err := json.Unmarshal(c.RawRecord, &rec); err != nil {
		return fmt.Errorf("parsing profile record: %w", err)
	}
	c.Record = &rec
	return nil
}
