// Package access implements the permission model: admin/editor/viewer role
// resolution from configured principal lists and group membership, and the
// per-contract read, write, restore and purge checks built on top of it.
package access

import (
	"encoding/json"
	"strings"
)

// PrincipalKind distinguishes direct user grants from group grants.
type PrincipalKind string

const (
	KindUser  PrincipalKind = "user"
	KindGroup PrincipalKind = "group"
)

// Principal is one entry of an editors or viewers list, written as
// "user:<id>" or "group:<id>".
type Principal struct {
	Kind PrincipalKind
	ID   string
}

// User returns a user principal.
func User(id string) Principal { return Principal{Kind: KindUser, ID: id} }

// Group returns a group principal.
func Group(id string) Principal { return Principal{Kind: KindGroup, ID: id} }

// String renders the principal in its stored form.
func (p Principal) String() string {
	return string(p.Kind) + ":" + p.ID
}

// ParsePrincipal parses "user:<id>" or "group:<id>".  Anything else,
// including an empty id, is rejected.
func ParsePrincipal(s string) (Principal, bool) {
	kind, id, found := strings.Cut(s, ":")
	if !found || id == "" {
		return Principal{}, false
	}
	switch PrincipalKind(kind) {
	case KindUser, KindGroup:
		return Principal{Kind: PrincipalKind(kind), ID: id}, true
	}
	return Principal{}, false
}

// ParsePrincipalList decodes a stored JSON array of principal strings.
// Malformed JSON yields an empty list and malformed entries are skipped.
func ParsePrincipalList(raw string) []Principal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	out := make([]Principal, 0, len(entries))
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			continue
		}
		if p, ok := ParsePrincipal(s); ok {
			out = append(out, p)
		}
	}
	return out
}

// EncodePrincipalList renders principals as the stored JSON array.
func EncodePrincipalList(list []Principal) string {
	strs := make([]string, 0, len(list))
	for _, p := range list {
		strs = append(strs, p.String())
	}
	b, _ := json.Marshal(strs)
	return string(b)
}

// Config is the typed permission configuration.  It is loaded fresh for
// every evaluation so membership changes apply immediately.
type Config struct {
	Editors []Principal
	Viewers []Principal
}

//Personal.AI order the ending
