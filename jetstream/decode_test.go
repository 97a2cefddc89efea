package jetstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileUpdateJSON = `{
	"did": "did:plc:eygmaihciaxprqvxpfvl6flk",
	"time_us": 1725911162329308,
	"kind": "commit",
	"commit": {
		"rev": "3l3qo2vutsw2b",
		"operation": "update",
		"collection": "app.bsky.actor.profile",
		"rkey": "self",
		"record": {
			"$type": "app.bsky.actor.profile",
			"avatar": {
				"$type": "blob",
				"ref": {"$link": "bafkreidmz4d2iqe4ei2jhxwj5vq7bynr3ajzmxvprnnbrt7jmeuqrlfuqq"},
				"mimeType": "image/jpeg",
				"size": 70470
			},
			"createdAt": "2024-09-09T19:46:02.102Z",
			"description": "official account",
			"displayName": "Elon Musk"
		},
		"cid": "bafyreiaxzaxdx4moqijfu4uo4lwzlnfjbsmr3zkmrqj2gqdoyhtvxnkkbu"
	}
}`

func TestDecodeProfileCommit(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	evt, err := DecodeEvent([]byte(profileUpdateJSON))
	require.NoError(err)
	assert.Equal("did:plc:eygmaihciaxprqvxpfvl6flk", evt.Did)
	assert.Equal(int64(1725911162329308), evt.TimeUS)
	assert.Equal(EventKindCommit, evt.Kind)
	require.NotNil(evt.Commit)
	assert.Equal(CommitOperationUpdate, evt.Commit.Operation)
	assert.Equal(ProfileCollection, evt.Commit.Collection)
	assert.Equal("self", evt.Commit.RKey)
	require.NotNil(evt.Commit.Record)
	assert.Equal("Elon Musk", evt.Commit.Record.DisplayName)
	assert.Equal("official account", evt.Commit.Record.Description)
	require.NotNil(evt.Commit.Record.Avatar)
	assert.Equal("image/jpeg", evt.Commit.Record.Avatar.MimeType)
	assert.Equal(int64(70470), evt.Commit.Record.Avatar.Size)
	assert.Equal("bafkreidmz4d2iqe4ei2jhxwj5vq7bynr3ajzmxvprnnbrt7jmeuqrlfuqq", evt.Commit.Record.Avatar.Ref.Link)
	assert.Nil(evt.Commit.Record.Banner)
	assert.Equal(0, evt.Commit.Record.Labels.Len())
	assert.True(evt.Actionable())
	assert.Equal(int64(1725911162329308), evt.Time().UnixMicro())
}

func TestDecodeMalformed(t *testing.T) {
	testVec := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"binary garbage", "\x00\xff\xfe\x01garbage"},
		{"truncated json", `{"did": "did:plc:abc", "kind": "comm`},
		{"json array", `[1, 2, 3]`},
		{"json string", `"commit"`},
		{"json null", `null`},
		{"missing did", `{"time_us": 1, "kind": "identity"}`},
		{"bad did", `{"did": "not-a-did", "time_us": 1, "kind": "identity"}`},
		{"did wrong type", `{"did": 1234, "time_us": 1, "kind": "identity"}`},
		{"missing kind", `{"did": "did:plc:abc123", "time_us": 1}`},
		{"commit without body", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit"}`},
		{"unknown operation", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "upsert", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {}}}`},
		{"missing collection", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "rkey": "self"}}`},
		{"profile without record", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self"}}`},
		{"profile null record", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self", "record": null}}`},
		{"display name wrong type", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": 42}}}`},
		{"labels wrong type", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": "x", "labels": "spam"}}}`},
	}

	for _, tc := range testVec {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := DecodeEvent([]byte(tc.payload))
			assert.Nil(t, evt)
			assert.Error(t, err)
			var de *DecodeError
			if assert.True(t, errors.As(err, &de)) {
				assert.Equal(t, tc.payload, string(de.Payload))
			}
		})
	}
}

func TestDecodeNotActionable(t *testing.T) {
	testVec := []struct {
		name    string
		payload string
	}{
		{"identity event", `{"did": "did:plc:abc123", "time_us": 1, "kind": "identity", "identity": {"did": "did:plc:abc123", "handle": "a.example.com", "seq": 1, "time": "2024-09-09T19:46:02.102Z"}}`},
		{"account event", `{"did": "did:plc:abc123", "time_us": 1, "kind": "account", "account": {"active": true, "did": "did:plc:abc123", "seq": 1, "time": "2024-09-09T19:46:02.102Z"}}`},
		{"unknown kind with stray commit", `{"did": "did:plc:abc123", "time_us": 1, "kind": "other", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": "Elon Musk"}}}`},
		{"profile delete", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "delete", "collection": "app.bsky.actor.profile", "rkey": "self"}}`},
		{"post create", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.feed.post", "rkey": "3l3qo2vuowo2b", "record": {"$type": "app.bsky.feed.post", "text": "Elon Musk", "createdAt": "2024-09-09T19:46:02.102Z"}}}`},
		{"self labels object", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "update", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": "Elon Musk", "labels": {"$type": "com.atproto.label.defs#selfLabels", "values": [{"val": "!no-unauthenticated"}]}}}}`},
		{"labels array", `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "update", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": "Elon Musk", "labels": [{"val": "impersonation"}]}}}`},
	}

	for _, tc := range testVec {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := DecodeEvent([]byte(tc.payload))
			assert.NoError(t, err)
			if assert.NotNil(t, evt) {
				assert.False(t, evt.Actionable())
			}
		})
	}
}

func TestDecodeEmptyLabelsIsActionable(t *testing.T) {
	assert := assert.New(t)

	for _, labels := range []string{`[]`, `null`, `{"$type": "com.atproto.label.defs#selfLabels", "values": []}`} {
		payload := `{"did": "did:plc:abc123", "time_us": 1, "kind": "commit", "commit": {"operation": "create", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"displayName": "Elon Musk", "labels": ` + labels + `}}}`
		evt, err := DecodeEvent([]byte(payload))
		assert.NoError(err, labels)
		if assert.NotNil(evt, labels) {
			assert.True(evt.Actionable(), labels)
		}
	}
}

func TestDecodeErrorPreview(t *testing.T) {
	assert := assert.New(t)

	de := &DecodeError{Payload: []byte("abcdefgh"), Err: errors.New("bad")}
	assert.Equal("abcd...", de.Preview(4))
	assert.Equal("abcdefgh", de.Preview(8))
	assert.Equal("decoding event: bad", de.Error())
}
