package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ktaudit/ktaudit/tree/prefix"
)

// AuditorUpdate is one entry of an AuditResponse: a single prefix-tree
// update together with the proof that it extends the auditor's current
// view.
type AuditorUpdate struct {
	Real       bool
	Index      []byte // 32 bytes
	Seed       []byte // 16 bytes
	Commitment []byte // 32 bytes
	Proof      prefix.Proof
}

func (u *AuditorUpdate) Marshal(buf *bytes.Buffer) error {
	if len(u.Index) != 32 {
		return errors.New("update index must be 32 bytes")
	}
	if len(u.Seed) != 16 {
		return errors.New("update seed must be 16 bytes")
	}
	if len(u.Commitment) != 32 {
		return errors.New("update commitment must be 32 bytes")
	}
	if u.Proof == nil {
		return errors.New("update is missing a proof")
	}

	real := byte(0)
	if u.Real {
		real = 1
	}
	if err := buf.WriteByte(real); err != nil {
		return err
	}
	if _, err := buf.Write(u.Index); err != nil {
		return err
	}
	if _, err := buf.Write(u.Seed); err != nil {
		return err
	}
	if _, err := buf.Write(u.Commitment); err != nil {
		return err
	}
	encoded, err := prefix.MarshalProof(u.Proof)
	if err != nil {
		return err
	}
	_, err = buf.Write(encoded)
	return err
}

func UnmarshalAuditorUpdate(buf *bytes.Buffer) (*AuditorUpdate, error) {
	real, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if real != 0 && real != 1 {
		return nil, errors.New("invalid real flag read from wire")
	}

	index, err := readFixed(buf, 32)
	if err != nil {
		return nil, err
	}
	seed, err := readFixed(buf, 16)
	if err != nil {
		return nil, err
	}
	commitment, err := readFixed(buf, 32)
	if err != nil {
		return nil, err
	}
	proof, err := prefix.UnmarshalProof(buf)
	if err != nil {
		return nil, err
	}

	return &AuditorUpdate{
		Real:       real == 1,
		Index:      index,
		Seed:       seed,
		Commitment: commitment,
		Proof:      proof,
	}, nil
}

// AuditRequest asks the remote service for a page of updates starting at
// Start.
type AuditRequest struct {
	Start uint64
	Limit uint64
}

func (r *AuditRequest) Marshal(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.BigEndian, r.Start); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, r.Limit)
}

func UnmarshalAuditRequest(buf *bytes.Buffer) (*AuditRequest, error) {
	var start, limit uint64
	if err := binary.Read(buf, binary.BigEndian, &start); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &limit); err != nil {
		return nil, err
	}
	return &AuditRequest{Start: start, Limit: limit}, nil
}

// AuditResponse is a single page of updates, with More indicating whether
// the client must request the next page.
type AuditResponse struct {
	Updates []*AuditorUpdate
	More    bool
}

func (r *AuditResponse) Marshal(buf *bytes.Buffer) error {
	if len(r.Updates) > maxUint32 {
		return errors.New("too many updates to marshal in one response")
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(r.Updates))); err != nil {
		return err
	}
	for _, u := range r.Updates {
		if err := u.Marshal(buf); err != nil {
			return err
		}
	}
	more := byte(0)
	if r.More {
		more = 1
	}
	return buf.WriteByte(more)
}

func UnmarshalAuditResponse(buf *bytes.Buffer) (*AuditResponse, error) {
	var n uint32
	if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	updates := make([]*AuditorUpdate, n)
	for i := range updates {
		u, err := UnmarshalAuditorUpdate(buf)
		if err != nil {
			return nil, err
		}
		updates[i] = u
	}
	more, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if more != 0 && more != 1 {
		return nil, errors.New("invalid more flag read from wire")
	}
	return &AuditResponse{Updates: updates, More: more == 1}, nil
}
