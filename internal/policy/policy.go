// Package policy decides whether a retrieval may transfer content of a given
// size for a given caller.
package policy

import (
	"context"

	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/tgerr"
)

// Decide is the pure rule: deny only when the size exceeds the free-tier
// limit and the caller holds no entitlement. Entitled users are never gated.
func Decide(size, limit int64, entitled bool) bool {
	if entitled {
		return true
	}
	return size <= limit
}

// Gate binds the rule to the entitlement store.
type Gate struct {
	ents  entitlement.Repository
	limit int64
}

// NewGate builds a policy gate with the configured free-tier byte limit.
func NewGate(ents entitlement.Repository, limit int64) *Gate {
	return &Gate{ents: ents, limit: limit}
}

// Check returns a SizeLimitError when the transfer is denied.
func (g *Gate) Check(ctx context.Context, userID, size int64) error {
	entitled, err := g.ents.Has(ctx, userID)
	if err != nil {
		return err
	}
	if !Decide(size, g.limit, entitled) {
		return &tgerr.SizeLimitError{Size: size, Limit: g.limit}
	}
	return nil
}
