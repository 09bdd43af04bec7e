// Package paywall provides a composable entitlement and monetization engine
// for paid-content platforms.
//
// Paywall is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - A pure entitlement resolver for tiered post visibility
//     (free, subscriber-only, pay-per-view)
//   - Atomic, idempotent pay-per-view unlocks safe under concurrent
//     duplicate requests
//   - A per-user wallet with an append-only transaction ledger and a
//     never-negative available balance
//   - Time-boxed creator subscriptions with upsert renewal
//   - Per-creator geo policy applied before any entitlement check
//   - A plugin hook system for audit trails, metrics and fee policies
//
// # Quick Start
//
// Create a paywall instance with your preferred store:
//
//	import (
//	    "github.com/xraph/paywall"
//	    "github.com/xraph/paywall/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	pw := paywall.New(store)
//
//	// Start (runs migrations, begins background workers)
//	if err := pw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pw.Stop()
//
// # Core Concepts
//
// Posts carry a visibility tier fixed at creation:
//
//	p := &post.Post{
//	    CreatorID:  "creator-1",
//	    Title:      "Behind the scenes",
//	    Visibility: post.VisibilityPPV,
//	    Price:      paywall.USD(500),
//	}
//	err := pw.CreatePost(ctx, p)
//
// Access checks resolve a (viewer, post) pair to a decision:
//
//	d, err := pw.CheckAccess(ctx, viewerID, p.ID)
//	if d.Allowed {
//	    // Render full content
//	}
//
// Unlocks charge the wallet exactly once per (user, post):
//
//	res, err := pw.Unlock(ctx, viewerID, p.ID, paywall.USD(500))
//	switch res.Status {
//	case unlock.StatusUnlocked, unlock.StatusAlreadyUnlocked:
//	    // Content is accessible
//	case unlock.StatusInsufficientBalance:
//	    // Redirect to top-up flow
//	}
//
// Repeating an unlock for an already-unlocked post succeeds without
// charging again; two simultaneous unlock calls result in exactly one
// debit, one unlock row, and one AlreadyUnlocked result.
//
// # Money
//
// All monetary amounts use integer arithmetic in minor currency units
// (cents for USD, pence for GBP) to avoid floating-point precision issues.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	post_01h2xcejqtf2nbrexx3vqjhp41  // Post ID
//	ulk_01h2xcejqtf2nbrexx3vqjhp41   // Unlock ID
//	txn_01h455vb4pex5vsknk084sn02q   // Transaction ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package paywall
