package prefix

import (
	"bytes"
	"errors"
	"testing"
)

func makeBytes(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestBitSet(t *testing.T) {
	index := []byte{0b10110000}
	index = append(index, make([]byte, 31)...)

	tests := []struct {
		level int
		want  bool
	}{
		{1, true}, {2, false}, {3, true}, {4, true},
		{5, false}, {6, false}, {7, false}, {8, false},
		{9, false},
	}
	for _, test := range tests {
		if got := bitSet(index, test.level); got != test.want {
			t.Errorf("bitSet(level=%d) = %v, want %v", test.level, got, test.want)
		}
	}
}

func TestApplyUpdateFirstRealUpdate(t *testing.T) {
	tree := New()
	update := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           NewTreeProof{},
	}
	if err := tree.ApplyUpdate(update, 0); err != nil {
		t.Fatal(err)
	}

	leaf := leafHash(update.CommitmentIndex, 0, 0)
	want := ascend(update.CommitmentIndex, leaf, maxLevel, nil, update.StandInSeed)
	if !bytes.Equal(tree.RootHash(), want) {
		t.Fatalf("unexpected root: got=%x want=%x", tree.RootHash(), want)
	}
}

func TestApplyUpdateEmptyTreeRejectsNonNewTree(t *testing.T) {
	tree := New()
	update := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           SameKeyProof{Counter: 0, FirstLogPosition: 0},
	}
	err := tree.ApplyUpdate(update, 0)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestApplyUpdateSameKeyOnFakeUpdateRejected(t *testing.T) {
	tree := &Tree{root: makeBytes(32, 0x42)}
	update := Update{
		IsReal:          false,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           SameKeyProof{Counter: 0, FirstLogPosition: 0},
	}
	err := tree.ApplyUpdate(update, 1)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestApplyUpdateNewTreeOnFakeUpdateRejected(t *testing.T) {
	tree := New()
	update := Update{
		IsReal:          false,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           NewTreeProof{},
	}
	err := tree.ApplyUpdate(update, 0)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestApplyUpdateSecondRealUpdateDifferentKey(t *testing.T) {
	tree := New()

	first := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x01),
		Commitment:      makeBytes(32, 0x00),
		Proof:           NewTreeProof{},
	}
	if err := tree.ApplyUpdate(first, 0); err != nil {
		t.Fatal(err)
	}

	// The second update diverges from the first at level 1 (its commitment
	// index has the opposite high bit). Since the first update was the only
	// real leaf in the tree, every branch other than its own path is a pure
	// stand-in derived from its own seed -- including the branch the second
	// update now occupies. The sibling the second update's proof must
	// supply is the first update's own path folded down to level 1.
	firstLeaf := leafHash(first.CommitmentIndex, 0, 0)
	firstAtLevel1 := ascendTo(first.CommitmentIndex, firstLeaf, maxLevel, 1, nil, first.StandInSeed)
	oldSeed := first.StandInSeed

	secondIndex := make([]byte, 32)
	secondIndex[0] = 0x80

	second := Update{
		IsReal:          true,
		CommitmentIndex: secondIndex,
		StandInSeed:     makeBytes(16, 0x02),
		Commitment:      makeBytes(32, 0x11),
		Proof: DifferentKeyProof{
			OldSeed: oldSeed,
			Copath:  [][]byte{firstAtLevel1},
		},
	}
	if err := tree.ApplyUpdate(second, 1); err != nil {
		t.Fatal(err)
	}

	secondLeaf := leafHash(second.CommitmentIndex, 0, 1)
	secondAtLevel1 := ascendTo(second.CommitmentIndex, secondLeaf, maxLevel, 1, second.Proof.(DifferentKeyProof).Copath, second.StandInSeed)
	want := intermediateHash(firstAtLevel1, secondAtLevel1)
	if !bytes.Equal(tree.RootHash(), want) {
		t.Fatalf("unexpected root: got=%x want=%x", tree.RootHash(), want)
	}
}

func TestApplyUpdateDifferentKeyWithEmptyCopathPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on a DifferentKey proof with an empty copath")
		}
	}()

	tree := &Tree{root: makeBytes(32, 0x42)}
	update := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           DifferentKeyProof{OldSeed: makeBytes(16, 0x01), Copath: nil},
	}
	_ = tree.ApplyUpdate(update, 1)
}

func TestApplyUpdateFakeDifferentKeyWithEmptyCopathPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on a fake update's DifferentKey proof with an empty copath")
		}
	}()

	tree := &Tree{root: makeBytes(32, 0x42)}
	update := Update{
		IsReal:          false,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof:           DifferentKeyProof{OldSeed: makeBytes(16, 0x01), Copath: [][]byte{}},
	}
	_ = tree.ApplyUpdate(update, 1)
}

func TestApplyUpdateStartingRootMismatchHalts(t *testing.T) {
	tree := &Tree{root: makeBytes(32, 0xff)}
	update := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x00),
		Commitment:      makeBytes(32, 0x00),
		Proof: SameKeyProof{
			Counter:          0,
			FirstLogPosition: 0,
			Copath:           nil,
		},
	}
	err := tree.ApplyUpdate(update, 1)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
	// Root must be left untouched.
	if !bytes.Equal(tree.RootHash(), makeBytes(32, 0xff)) {
		t.Fatalf("root was mutated despite verification failure")
	}
}

func TestApplyUpdateFakeDifferentKey(t *testing.T) {
	tree := New()
	first := Update{
		IsReal:          true,
		CommitmentIndex: makeBytes(32, 0x00),
		StandInSeed:     makeBytes(16, 0x01),
		Commitment:      makeBytes(32, 0x00),
		Proof:           NewTreeProof{},
	}
	if err := tree.ApplyUpdate(first, 0); err != nil {
		t.Fatal(err)
	}
	firstLeaf := leafHash(first.CommitmentIndex, 0, 0)
	firstAtLevel1 := ascendTo(first.CommitmentIndex, firstLeaf, maxLevel, 1, nil, first.StandInSeed)

	fakeIndex := make([]byte, 32)
	fakeIndex[0] = 0x80
	fake := Update{
		IsReal:          false,
		CommitmentIndex: fakeIndex,
		StandInSeed:     makeBytes(16, 0x09),
		Commitment:      makeBytes(32, 0x22),
		Proof: DifferentKeyProof{
			OldSeed: first.StandInSeed,
			Copath:  [][]byte{firstAtLevel1},
		},
	}
	if err := tree.ApplyUpdate(fake, 1); err != nil {
		t.Fatal(err)
	}

	fakeStandIn := standInHash(fake.StandInSeed, 1)
	want := intermediateHash(firstAtLevel1, fakeStandIn)
	if !bytes.Equal(tree.RootHash(), want) {
		t.Fatalf("unexpected root: got=%x want=%x", tree.RootHash(), want)
	}
}
