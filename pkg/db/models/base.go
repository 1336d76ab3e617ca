package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier when the row has none yet. Postgres
// also defaults ids with gen_random_uuid(), but generating client side keeps
// ids available to the caller before commit.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
