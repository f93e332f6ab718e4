// Package compat holds the response-shape shims for the storefront backend.
// The backend has shipped several shapes for the same payloads; each shim is
// an ordered list of extraction strategies and the first one that matches wins.
package compat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned when no strategy recognizes a payload.
var ErrNoMatch = errors.New("compat: unrecognized response shape")

// Strategy tries to extract a T from a JSON payload. ok is false when the
// payload does not have the shape the strategy understands.
type Strategy[T any] struct {
	Name    string
	Extract func(body []byte) (v T, ok bool)
}

// Chain is an ordered list of strategies.
type Chain[T any] []Strategy[T]

// Extract runs the strategies in order and returns the first match together
// with the name of the strategy that produced it.
func (c Chain[T]) Extract(body []byte) (T, string, error) {
	for _, s := range c {
		if v, ok := s.Extract(body); ok {
			return v, s.Name, nil
		}
	}
	var zero T
	return zero, "", fmt.Errorf("%w (tried %s)", ErrNoMatch, c.names())
}

func (c Chain[T]) names() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

// TokenPair is the credential pair found in a login or refresh response.
type TokenPair struct {
	Access  string
	Refresh string
}

var (
	accessKeys  = []string{"access", "access_token", "token"}
	refreshKeys = []string{"refresh", "refresh_token"}
)

// TokenChain recognizes, in order: flat token fields, tokens nested under
// "tokens", under "data", and under "data.tokens".
var TokenChain = Chain[TokenPair]{
	{Name: "flat", Extract: tokensAt()},
	{Name: "tokens", Extract: tokensAt("tokens")},
	{Name: "data", Extract: tokensAt("data")},
	{Name: "data.tokens", Extract: tokensAt("data", "tokens")},
}

// Tokens extracts the credential pair from a login or refresh response.
func Tokens(body []byte) (TokenPair, error) {
	pair, _, err := TokenChain.Extract(body)
	return pair, err
}

func tokensAt(path ...string) func([]byte) (TokenPair, bool) {
	return func(body []byte) (TokenPair, bool) {
		obj, ok := descend(body, path...)
		if !ok {
			return TokenPair{}, false
		}
		pair := TokenPair{
			Access:  firstString(obj, accessKeys),
			Refresh: firstString(obj, refreshKeys),
		}
		return pair, pair.Access != ""
	}
}

// ListChain returns the strategies for a collection payload: a bare array,
// then the paginated "results" envelope, then "data" and "items".
func ListChain[T any]() Chain[[]T] {
	return Chain[[]T]{
		{Name: "array", Extract: listAt[T]()},
		{Name: "results", Extract: listAt[T]("results")},
		{Name: "data", Extract: listAt[T]("data")},
		{Name: "items", Extract: listAt[T]("items")},
	}
}

// List decodes a collection payload of any known shape. An empty or null
// body is an empty list.
func List[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	items, _, err := ListChain[T]().Extract(trimmed)
	return items, err
}

func listAt[T any](path ...string) func([]byte) ([]T, bool) {
	return func(body []byte) ([]T, bool) {
		raw := json.RawMessage(body)
		if len(path) > 0 {
			obj, ok := descend(body, path[:len(path)-1]...)
			if !ok {
				return nil, false
			}
			if raw, ok = obj[path[len(path)-1]]; !ok {
				return nil, false
			}
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, false
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		if items == nil {
			items = []T{}
		}
		return items, true
	}
}

// Object decodes a single resource that may be wrapped in {"data": ...}.
func Object[T any](body []byte) (T, error) {
	var zero T
	obj, ok := descend(body)
	if !ok {
		return zero, fmt.Errorf("%w: expected an object", ErrNoMatch)
	}
	target := json.RawMessage(body)
	if inner, ok := obj["data"]; ok && len(obj) <= 2 && isObject(inner) {
		target = inner
	}
	var v T
	if err := json.Unmarshal(target, &v); err != nil {
		return zero, fmt.Errorf("decode object: %w", err)
	}
	return v, nil
}

// descend decodes body as an object and follows path through nested objects.
func descend(body []byte, path ...string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, false
	}
	for _, key := range path {
		raw, ok := obj[key]
		if !ok || !isObject(raw) {
			return nil, false
		}
		obj = nil
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
	}
	return obj, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func firstString(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}
