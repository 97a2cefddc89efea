package main

import (
	"fmt"

	"github.com/imposterwatch/imposterwatch/imposter"
	"github.com/imposterwatch/imposterwatch/syntax"
)

const listCollection = "app.bsky.graph.list"

// parseListURI checks that raw is a record URI for a moderation list.
func parseListURI(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("list URI is required")
	}
	aturi, err := syntax.ParseATURI(raw)
	if err != nil {
		return "", fmt.Errorf("invalid list URI: %w", err)
	}
	if aturi.Collection() != listCollection {
		return "", fmt.Errorf("list URI must point to a %s record, got collection %q", listCollection, aturi.Collection())
	}
	if aturi.RecordKey() == "" {
		return "", fmt.Errorf("list URI has no record key: %s", raw)
	}
	return aturi.String(), nil
}

func loadRegistry(path string) (*imposter.Registry, error) {
	if path == "" {
		return imposter.DefaultRegistry(), nil
	}
	reg, err := imposter.LoadRegistryFileJSON(path)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	return reg, nil
}
