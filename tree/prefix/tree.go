package prefix

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrInvalidProof is returned (optionally wrapped with additional context
// via fmt.Errorf's %w verb) whenever an update's proof fails to verify
// against the auditor's current view of the tree, or pairs an update kind
// with a proof variant that can never legitimately accompany it.
var ErrInvalidProof = errors.New("invalid prefix tree proof")

// Update is a single entry the auditor is asked to apply to the tree.
type Update struct {
	IsReal          bool
	CommitmentIndex []byte // 32 bytes
	StandInSeed     []byte // 16 bytes
	Commitment      []byte // 32 bytes
	Proof           Proof
}

func (u Update) validate() error {
	if len(u.CommitmentIndex) != commitmentIndexSize {
		return errors.New("commitment index must be 32 bytes")
	}
	if len(u.StandInSeed) != seedSize {
		return errors.New("stand-in seed must be 16 bytes")
	}
	if len(u.Commitment) != hashSize {
		return errors.New("commitment must be 32 bytes")
	}
	return nil
}

// Tree is the condensed prefix tree. It retains only the current root hash;
// every update is verified and applied against that single value.
type Tree struct {
	root []byte // nil iff no real update has ever been applied
}

// New returns an empty condensed prefix tree.
func New() *Tree {
	return &Tree{}
}

// FromRoot returns a condensed prefix tree initialized from a previously
// persisted root hash. An empty root indicates no real update has yet been
// applied.
func FromRoot(root []byte) *Tree {
	if len(root) == 0 {
		return &Tree{}
	}
	return &Tree{root: root}
}

// RootHash returns the current root hash, or nil if no real update has been
// applied yet.
func (t *Tree) RootHash() []byte {
	return t.root
}

// ApplyUpdate verifies update against the tree's current root and, if
// valid, replaces the root with the result of applying it. totalUpdates is
// the number of updates previously applied to this tree (and therefore the
// log position this update will occupy).
func (t *Tree) ApplyUpdate(update Update, totalUpdates uint64) error {
	if err := update.validate(); err != nil {
		panic(fmt.Sprintf("prefix: %v", err))
	}

	if err := t.verifyStartingRoot(update); err != nil {
		return err
	}

	newRoot, err := t.computeNewRoot(update, totalUpdates)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// checkStartingLevel enforces 0 < startingLevel <= 256 on a DifferentKey
// proof's copath length. A zero-length copath would underflow the level
// passed to standInHash; a copath longer than the tree is tall can never
// have been produced legitimately. Both are invariant violations, not
// recoverable proof failures.
func checkStartingLevel(startingLevel int) {
	if startingLevel <= 0 || startingLevel > maxLevel {
		panic(fmt.Sprintf("prefix: DifferentKey proof has invalid starting level %d", startingLevel))
	}
}

func (t *Tree) verifyStartingRoot(update Update) error {
	switch proof := update.Proof.(type) {
	case NewTreeProof:
		if t.root != nil {
			return fmt.Errorf("%w: NewTree proof given but tree is not empty", ErrInvalidProof)
		}
		if !update.IsReal {
			return fmt.Errorf("%w: NewTree proof given for a fake update", ErrInvalidProof)
		}
		return nil

	case DifferentKeyProof:
		if t.root == nil {
			return fmt.Errorf("%w: first proof applied to an empty tree must be NewTree", ErrInvalidProof)
		}
		checkStartingLevel(len(proof.Copath))
		start := standInHash(proof.OldSeed, len(proof.Copath))
		derived := ascend(update.CommitmentIndex, start, len(proof.Copath), proof.Copath, update.StandInSeed)
		if !bytes.Equal(derived, t.root) {
			return fmt.Errorf("%w: derived root %x does not match stored root %x", ErrInvalidProof, derived, t.root)
		}
		return nil

	case SameKeyProof:
		if t.root == nil {
			return fmt.Errorf("%w: first proof applied to an empty tree must be NewTree", ErrInvalidProof)
		}
		if !update.IsReal {
			return fmt.Errorf("%w: SameKey proof given for a fake update", ErrInvalidProof)
		}
		start := leafHash(update.CommitmentIndex, proof.Counter, proof.FirstLogPosition)
		derived := ascend(update.CommitmentIndex, start, maxLevel, proof.Copath, update.StandInSeed)
		if !bytes.Equal(derived, t.root) {
			return fmt.Errorf("%w: derived root %x does not match stored root %x", ErrInvalidProof, derived, t.root)
		}
		return nil

	default:
		return fmt.Errorf("%w: unrecognized proof variant", ErrInvalidProof)
	}
}

func (t *Tree) computeNewRoot(update Update, totalUpdates uint64) ([]byte, error) {
	if !update.IsReal {
		proof, ok := update.Proof.(DifferentKeyProof)
		if !ok {
			return nil, fmt.Errorf("%w: a fake update must carry a DifferentKey proof", ErrInvalidProof)
		}
		checkStartingLevel(len(proof.Copath))
		start := standInHash(update.StandInSeed, len(proof.Copath))
		return ascend(update.CommitmentIndex, start, len(proof.Copath), proof.Copath, update.StandInSeed), nil
	}

	switch proof := update.Proof.(type) {
	case NewTreeProof:
		leaf := leafHash(update.CommitmentIndex, 0, totalUpdates)
		return ascend(update.CommitmentIndex, leaf, maxLevel, nil, update.StandInSeed), nil

	case DifferentKeyProof:
		leaf := leafHash(update.CommitmentIndex, 0, totalUpdates)
		return ascend(update.CommitmentIndex, leaf, maxLevel, proof.Copath, update.StandInSeed), nil

	case SameKeyProof:
		leaf := leafHash(update.CommitmentIndex, proof.Counter+1, proof.FirstLogPosition)
		return ascend(update.CommitmentIndex, leaf, maxLevel, proof.Copath, update.StandInSeed), nil

	default:
		return nil, fmt.Errorf("%w: unrecognized proof variant", ErrInvalidProof)
	}
}
