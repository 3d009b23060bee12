// Package actorcontext carries the caller identity and request metadata
// resolved by the transport layer.
package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Actor is the authenticated caller. Authentication happens upstream;
// this package only transports what was asserted.
type Actor struct {
	Type      ActorType
	UserID    string
	Role      string
	CompanyID snowflake.ID
	// TerminalIDs lists the terminals the caller may work on. AllTerminals
	// grants every terminal of the company.
	TerminalIDs  []snowflake.ID
	AllTerminals bool
}

// CanAccessTerminal reports whether the actor may act on terminalID.
func (a Actor) CanAccessTerminal(terminalID snowflake.ID) bool {
	if a.Type == ActorTypeSystem || a.AllTerminals {
		return true
	}
	for _, id := range a.TerminalIDs {
		if id == terminalID {
			return true
		}
	}
	return false
}

// UserIDPtr returns the user id, or nil for anonymous and system actors.
func (a Actor) UserIDPtr() *string {
	id := strings.TrimSpace(a.UserID)
	if id == "" {
		return nil
	}
	return &id
}

type actorKey struct{}

type requestMetaKey struct{}

// RequestMeta is what the audit trail records about the transport.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// CompanyIDFromContext returns the company of the current actor.
func CompanyIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.CompanyID == 0 {
		return 0, false
	}
	return actor.CompanyID, true
}

// System returns ctx tagged with the system actor.
func System(ctx context.Context) context.Context {
	return WithActor(ctx, Actor{Type: ActorTypeSystem, UserID: "system", Role: "system"})
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// ParseTerminalIDs parses a comma separated list of snowflake ids. The
// single value "*" grants every terminal.
func ParseTerminalIDs(raw string) ([]snowflake.ID, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	if raw == "*" {
		return nil, true, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]snowflake.ID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := snowflake.ParseString(part)
		if err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, false, nil
}
