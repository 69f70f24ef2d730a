package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	id, _, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}
