package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
)

// Service gates an action of an actor on one terminal.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, terminalID snowflake.ID, object string, action string) error
	// AuthorizeCompany gates actions that are not tied to a terminal, such
	// as reading the audit trail of the actor's company.
	AuthorizeCompany(ctx context.Context, actor actorcontext.Actor, object string, action string) error
}
