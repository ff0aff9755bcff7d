package prefix

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Proof tag bytes. Closed set: any other value read off the wire is an
// error, not a case the caller should attempt to extend.
const (
	newTreeProofType uint8 = iota + 1
	differentKeyProofType
	sameKeyProofType
)

// Proof is the evidence accompanying an update that shows how it extends the
// auditor's current view of the tree. It is one of three closed variants.
type Proof interface {
	marshal(buf *bytes.Buffer) error
}

// NewTreeProof accompanies the very first real update to an empty tree.
type NewTreeProof struct{}

func (p NewTreeProof) marshal(buf *bytes.Buffer) error {
	return buf.WriteByte(newTreeProofType)
}

// DifferentKeyProof shows that the update's commitment index diverges from
// every previously-seen index along the explored portion of the path. It
// may accompany either a real or a fake update.
type DifferentKeyProof struct {
	OldSeed []byte // 16 bytes, seed for the stand-in the update replaces
	Copath  [][]byte
}

func (p DifferentKeyProof) marshal(buf *bytes.Buffer) error {
	if len(p.OldSeed) != seedSize {
		return errors.New("old seed must be 16 bytes")
	}
	if err := buf.WriteByte(differentKeyProofType); err != nil {
		return err
	} else if _, err := buf.Write(p.OldSeed); err != nil {
		return err
	}
	return marshalCopath(buf, p.Copath)
}

// SameKeyProof shows that the update's commitment index matches a leaf the
// auditor has already observed, and supplies the prior leaf's counter and
// log position so the auditor can recompute both the old and new leaf
// hashes. Only accompanies real updates.
type SameKeyProof struct {
	Counter          uint32
	FirstLogPosition uint64
	Copath           [][]byte
}

func (p SameKeyProof) marshal(buf *bytes.Buffer) error {
	if err := buf.WriteByte(sameKeyProofType); err != nil {
		return err
	} else if err := binary.Write(buf, binary.BigEndian, p.Counter); err != nil {
		return err
	} else if err := binary.Write(buf, binary.BigEndian, p.FirstLogPosition); err != nil {
		return err
	}
	return marshalCopath(buf, p.Copath)
}

func marshalCopath(buf *bytes.Buffer, copath [][]byte) error {
	if len(copath) > maxLevel {
		return errors.New("copath is too long to marshal")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(copath))); err != nil {
		return err
	}
	for _, sibling := range copath {
		if len(sibling) != hashSize {
			return errors.New("copath entry must be 32 bytes")
		}
		if _, err := buf.Write(sibling); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalCopath(buf *bytes.Buffer) ([][]byte, error) {
	var n uint16
	if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if int(n) > maxLevel {
		return nil, errors.New("copath read from wire is too long")
	}
	copath := make([][]byte, n)
	for i := range copath {
		sibling := make([]byte, hashSize)
		if _, err := io.ReadFull(buf, sibling); err != nil {
			return nil, err
		}
		copath[i] = sibling
	}
	return copath, nil
}

// MarshalProof returns the wire encoding of p.
func MarshalProof(p Proof) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := p.marshal(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalProof reads one Proof from buf.
func UnmarshalProof(buf *bytes.Buffer) (Proof, error) {
	proofType, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}

	switch proofType {
	case newTreeProofType:
		return NewTreeProof{}, nil

	case differentKeyProofType:
		oldSeed := make([]byte, seedSize)
		if _, err := io.ReadFull(buf, oldSeed); err != nil {
			return nil, err
		}
		copath, err := unmarshalCopath(buf)
		if err != nil {
			return nil, err
		}
		return DifferentKeyProof{OldSeed: oldSeed, Copath: copath}, nil

	case sameKeyProofType:
		var counter uint32
		if err := binary.Read(buf, binary.BigEndian, &counter); err != nil {
			return nil, err
		}
		var firstLogPosition uint64
		if err := binary.Read(buf, binary.BigEndian, &firstLogPosition); err != nil {
			return nil, err
		}
		copath, err := unmarshalCopath(buf)
		if err != nil {
			return nil, err
		}
		return SameKeyProof{Counter: counter, FirstLogPosition: firstLogPosition, Copath: copath}, nil

	default:
		return nil, errors.New("invalid proof type read from wire")
	}
}
