package controllers

import (
	"net/http"

	"github.com/angelmondragon/freightdispatch-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

func requestActor(r *http.Request) (types.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthenticated, "actor context missing")
	}
	return actor, nil
}
