// Package scope carries multi-tenant identity (app and org) across the
// client/worker boundary. Clients capture the caller's forge.Scope into
// orchestration tags; workers restore it into the dispatch context.
package scope

import (
	"context"
	"maps"

	"github.com/xraph/forge"
)

// Tag keys under which the scope travels with an orchestration instance.
const (
	TagAppID = "taskhub.scope.app_id"
	TagOrgID = "taskhub.scope.org_id"
)

// Capture extracts the app and org identifiers from the context.
// Returns empty strings if no scope is present.
func Capture(ctx context.Context) (appID, orgID string) {
	s, ok := forge.ScopeFrom(ctx)
	if !ok {
		return "", ""
	}
	return s.AppID(), s.OrgID()
}

// CaptureTags returns a copy of tags with the context's scope added.
// tags is returned unchanged when the context carries no scope.
func CaptureTags(ctx context.Context, tags map[string]string) map[string]string {
	appID, orgID := Capture(ctx)
	if appID == "" && orgID == "" {
		return tags
	}
	out := make(map[string]string, len(tags)+2)
	maps.Copy(out, tags)
	if appID != "" {
		out[TagAppID] = appID
	}
	if orgID != "" {
		out[TagOrgID] = orgID
	}
	return out
}

// Restore attaches a scope to the context using the given app and org IDs.
// If both are empty, the context is returned unchanged.
func Restore(ctx context.Context, appID, orgID string) context.Context {
	if appID == "" && orgID == "" {
		return ctx
	}
	var s forge.Scope
	if orgID != "" {
		s = forge.NewOrgScope(appID, orgID)
	} else {
		s = forge.NewAppScope(appID)
	}
	return forge.WithScope(ctx, s)
}

// RestoreTags is Restore fed from orchestration tags.
func RestoreTags(ctx context.Context, tags map[string]string) context.Context {
	return Restore(ctx, tags[TagAppID], tags[TagOrgID])
}
