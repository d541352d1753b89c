// Package middleware wraps a ports.Ledger to change what gets persisted.
package middleware

import "github.com/aretw0/releasebot/pkg/ports"

// Middleware allows wrapping a Ledger to add behavior.
type Middleware func(ports.Ledger) ports.Ledger

// Chain applies middlewares so the first one sees calls first.
func Chain(ledger ports.Ledger, mws ...Middleware) ports.Ledger {
	for i := len(mws) - 1; i >= 0; i-- {
		ledger = mws[i](ledger)
	}
	return ledger
}
