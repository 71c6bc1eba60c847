package i18nhttp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// keyScope is the fixed top-level tag separating this package's queries from
// unrelated entries sharing the same cache client.
const keyScope = "i18nhttp"

const (
	opLoad = "load"
	opSave = "save"
)

// Key identifies one query to the deduplicating cache client. Calls with the
// same operation, URL and payload map to the same key so concurrent loads
// coalesce into one transport call; any field difference yields a distinct
// key. Equality is structural.
type Key struct {
	Scope   string
	Op      string
	URL     string
	Payload string
}

// LoadKey derives the key for a read of the given URL.
func LoadKey(fetchURL string) Key {
	return Key{Scope: keyScope, Op: opLoad, URL: fetchURL}
}

// SaveKey derives the key for a missing-entry submission. The payload is
// canonically encoded so identical payloads always produce equal keys.
func SaveKey(fetchURL string, payload map[string]any) Key {
	return Key{Scope: keyScope, Op: opSave, URL: fetchURL, Payload: canonicalPayload(payload)}
}

func canonicalPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}

// String renders the key as an ordered JSON tuple, the canonical form handed
// to the cache client.
func (k Key) String() string {
	parts := []string{k.Scope, k.Op, k.URL}
	if k.Payload != "" {
		parts = append(parts, k.Payload)
	}
	return encodeKeyParts(parts, true)
}

// ScopePrefix covers every key this package issues, for invalidating all
// translation queries at once.
func ScopePrefix() string {
	return encodeKeyParts([]string{keyScope}, false)
}

// LoadPrefix covers all read keys regardless of URL.
func LoadPrefix() string {
	return encodeKeyParts([]string{keyScope, opLoad}, false)
}

func encodeKeyParts(parts []string, closed bool) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		quoted, _ := json.Marshal(p)
		b.Write(quoted)
	}
	if closed {
		b.WriteByte(']')
	}
	return b.String()
}
