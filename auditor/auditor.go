// Package auditor implements the audit loop: a stateful third-party
// auditor that replays a key-transparency service's prefix and log trees
// in condensed form and periodically countersigns the log tree's head.
package auditor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ktaudit/ktaudit/crypto/keys"
	"github.com/ktaudit/ktaudit/db"
	logtree "github.com/ktaudit/ktaudit/tree/log"
	"github.com/ktaudit/ktaudit/tree/prefix"
	"github.com/ktaudit/ktaudit/transport"
	"github.com/ktaudit/ktaudit/wire"
)

// ErrInvalidAuditorSignature is returned by New when the persisted state
// blob's self-signature does not verify under the configured auditor
// public key.
var ErrInvalidAuditorSignature = errors.New("auditor: persisted state signature is invalid")

// ErrTransportFailure wraps any error returned by the configured Transport
// during a tick, so callers can distinguish it (with errors.Is) from a
// fatal prefix.ErrInvalidProof and retry the next tick from the same index.
var ErrTransportFailure = errors.New("auditor: transport failure")

// ErrPersistenceFailure wraps any error returned by the configured
// Repository while persisting auditor state. The in-memory state has
// already advanced by the time this can occur, and remains authoritative.
var ErrPersistenceFailure = errors.New("auditor: persistence failure")

// Config bundles everything the audit loop needs to run.
type Config struct {
	PrivateKey    keys.PrivateKey
	PayloadConfig wire.SignedPayloadConfig
	Repository    db.Repository
	Transport     transport.Transport

	BatchSize         uint64 // page size for Audit requests, <= 1000
	SignatureInterval time.Duration
	SignaturePageSize uint64
}

// Auditor holds the in-memory state of a running audit loop: the two
// condensed trees and the progress/signing counters, guarded by a
// mutual-exclusion token so a tick never overlaps with another tick or
// with startup.
type Auditor struct {
	cfg Config
	mu  sync.Mutex
	now func() time.Time

	totalUpdatesProcessed uint64
	updatesSinceLastHead  uint64
	lastHeadSentAt        time.Time
	headsSigned           uint64

	// ticksSkipped counts ticks abandoned because the mutual-exclusion
	// token was already held. It is incremented without holding mu, since
	// failing to acquire mu is exactly the case being counted.
	ticksSkipped atomic.Uint64

	prefixTree *prefix.Tree
	logTree    *logtree.Tree
}

// New performs startup: fetch the persisted blob (if any), verify its
// self-signature, and reconstruct both trees. An empty repository yields
// an Auditor with fresh, empty trees.
func New(ctx context.Context, cfg Config) (*Auditor, error) {
	a := &Auditor{cfg: cfg, now: time.Now}
	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := cfg.Repository.Get(ctx)
	if errors.Is(err, db.ErrNotFound) {
		a.prefixTree = prefix.New()
		a.logTree = logtree.New()
		a.lastHeadSentAt = a.now()
		return a, nil
	} else if err != nil {
		return nil, fmt.Errorf("fetching persisted state: %w", err)
	}

	stateAndSig, err := wire.UnmarshalAuditorStateAndSignature(bytes.NewBuffer(blob))
	if err != nil {
		return nil, fmt.Errorf("decoding persisted state: %w", err)
	}
	if !cfg.PrivateKey.Public().Verify(stateAndSig.SerializedAuditorState, stateAndSig.Signature) {
		return nil, ErrInvalidAuditorSignature
	}

	state, err := wire.UnmarshalAuditorState(bytes.NewBuffer(stateAndSig.SerializedAuditorState))
	if err != nil {
		return nil, fmt.Errorf("decoding auditor state: %w", err)
	}

	a.totalUpdatesProcessed = state.TotalUpdatesProcessed
	a.logTree = logtree.FromPersisted(wire.ToLogNodes(state.LogNodes), state.TotalUpdatesProcessed)
	a.prefixTree = prefix.FromRoot(state.CurrentPrefixRoot)
	a.lastHeadSentAt = a.now()
	return a, nil
}

// TotalUpdatesProcessed reports how many updates this auditor has applied.
func (a *Auditor) TotalUpdatesProcessed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalUpdatesProcessed
}

// HeadsSigned reports how many tree heads this auditor has signed,
// transmitted, and persisted.
func (a *Auditor) HeadsSigned() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headsSigned
}

// TicksSkipped reports how many ticks were abandoned because a previous
// tick still held the mutual-exclusion token.
func (a *Auditor) TicksSkipped() uint64 {
	return a.ticksSkipped.Load()
}

// RunTick executes one scheduled pass of the audit loop: it claims the
// mutual-exclusion token (skipping the tick with a warning if another tick
// is still in flight), drains every available page of updates, and runs
// the signing step after each applied update and once more after the
// stream ends.
func (a *Auditor) RunTick(ctx context.Context) error {
	if !a.mu.TryLock() {
		a.ticksSkipped.Add(1)
		log.Printf("auditor: skipping tick, previous tick still holds the lock")
		return nil
	}
	defer a.mu.Unlock()

	start := a.totalUpdatesProcessed
	for {
		resp, err := a.cfg.Transport.Audit(ctx, wire.AuditRequest{Start: start, Limit: a.cfg.BatchSize})
		if err != nil {
			return fmt.Errorf("requesting updates: %w: %w", ErrTransportFailure, err)
		}

		for _, u := range resp.Updates {
			update := prefix.Update{
				IsReal:          u.Real,
				CommitmentIndex: u.Index,
				StandInSeed:     u.Seed,
				Commitment:      u.Commitment,
				Proof:           u.Proof,
			}
			if err := a.prefixTree.ApplyUpdate(update, a.totalUpdatesProcessed); err != nil {
				return fmt.Errorf("applying update %d: %w", a.totalUpdatesProcessed, err)
			}
			a.logTree.AppendLeaf(u.Commitment, a.prefixTree.RootHash(), a.totalUpdatesProcessed)
			a.totalUpdatesProcessed++
			a.updatesSinceLastHead++

			if err := a.signingStep(ctx); err != nil {
				return err
			}
		}

		start += uint64(len(resp.Updates))
		if !resp.More {
			break
		}
	}

	return a.signingStep(ctx)
}

// signingStep tests whether either threshold has been crossed and, if so,
// signs and transmits a tree head and persists the auditor's new state.
// It is always safe to call: with nothing yet processed, or with neither
// threshold crossed, it is a no-op.
func (a *Auditor) signingStep(ctx context.Context) error {
	if a.totalUpdatesProcessed == 0 {
		return nil
	}

	now := a.now()
	crossed := now.Sub(a.lastHeadSentAt) >= a.cfg.SignatureInterval ||
		a.updatesSinceLastHead >= a.cfg.SignaturePageSize
	if !crossed {
		return nil
	}

	logRoot, err := a.logTree.RootHash()
	if err != nil {
		return fmt.Errorf("computing log root: %w", err)
	}
	timestampMs := now.UnixMilli()

	head, err := wire.SignTreeHead(a.cfg.PrivateKey, a.cfg.PayloadConfig, a.totalUpdatesProcessed, timestampMs, logRoot)
	if err != nil {
		return fmt.Errorf("signing tree head: %w", err)
	}
	if err := a.cfg.Transport.SetAuditorHead(ctx, *head); err != nil {
		return fmt.Errorf("transmitting tree head: %w: %w", ErrTransportFailure, err)
	}

	state := &wire.AuditorState{
		TotalUpdatesProcessed: a.totalUpdatesProcessed,
		CurrentPrefixRoot:     a.prefixTree.RootHash(),
		LogNodes:              wire.FromLogNodes(a.logTree.Nodes()),
	}
	serialized, err := wire.Marshal(state)
	if err != nil {
		return fmt.Errorf("serializing auditor state: %w", err)
	}
	blob, err := wire.Marshal(&wire.AuditorStateAndSignature{
		SerializedAuditorState: serialized,
		Signature:              a.cfg.PrivateKey.Sign(serialized),
	})
	if err != nil {
		return fmt.Errorf("serializing persisted blob: %w", err)
	}
	if err := a.cfg.Repository.Put(ctx, blob); err != nil {
		return fmt.Errorf("persisting auditor state: %w: %w", ErrPersistenceFailure, err)
	}

	a.lastHeadSentAt = now
	a.updatesSinceLastHead = 0
	a.headsSigned++
	return nil
}
