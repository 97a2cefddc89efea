package client

import (
	"context"
	"fmt"
)

type CreateRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     any    `json:"record"`
}

type CreateRecordOutput struct {
	Uri string `json:"uri"`
	Cid string `json:"cid"`
}

// CreateRecord writes a new record to the authenticated account's repo, with a server-assigned record key.
func (c *APIClient) CreateRecord(ctx context.Context, collection string, record any) (*CreateRecordOutput, error) {
	if c.AccountDID == nil {
		return nil, fmt.Errorf("createRecord requires an authenticated session")
	}
	var out CreateRecordOutput
	if err := c.Post(ctx, "com.atproto.repo.createRecord", CreateRecordInput{
		Repo:       c.AccountDID.String(),
		Collection: collection,
		Record:     record,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
