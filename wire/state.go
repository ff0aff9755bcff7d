package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ktaudit/ktaudit/tree/log"
)

// LogTreeNode is the wire form of a single retained log-tree node.
type LogTreeNode struct {
	ID   uint64
	Hash []byte // 32 bytes
}

// AuditorState is everything the auditor needs to resume after a restart:
// the progress counter, the current prefix-tree root, and the log tree's
// condensed node set.
type AuditorState struct {
	TotalUpdatesProcessed uint64
	CurrentPrefixRoot     []byte // 32 bytes
	LogNodes              []LogTreeNode
}

// FromLogNodes converts a condensed log tree's own node snapshot into its
// wire representation.
func FromLogNodes(nodes []log.Node) []LogTreeNode {
	out := make([]LogTreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = LogTreeNode{ID: n.ID, Hash: n.Hash}
	}
	return out
}

// ToLogNodes converts a wire node snapshot back into the form the log
// package's FromPersisted expects.
func ToLogNodes(nodes []LogTreeNode) []log.Node {
	out := make([]log.Node, len(nodes))
	for i, n := range nodes {
		out[i] = log.Node{ID: n.ID, Hash: n.Hash}
	}
	return out
}

func (s *AuditorState) Marshal(buf *bytes.Buffer) error {
	if len(s.CurrentPrefixRoot) != 32 {
		return errors.New("current prefix root must be 32 bytes")
	}
	if err := binary.Write(buf, binary.BigEndian, s.TotalUpdatesProcessed); err != nil {
		return err
	}
	if _, err := buf.Write(s.CurrentPrefixRoot); err != nil {
		return err
	}
	if len(s.LogNodes) > maxUint32 {
		return errors.New("too many log nodes to marshal")
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s.LogNodes))); err != nil {
		return err
	}
	for _, n := range s.LogNodes {
		if len(n.Hash) != 32 {
			return errors.New("log node hash must be 32 bytes")
		}
		if err := binary.Write(buf, binary.BigEndian, n.ID); err != nil {
			return err
		}
		if _, err := buf.Write(n.Hash); err != nil {
			return err
		}
	}
	return nil
}

func UnmarshalAuditorState(buf *bytes.Buffer) (*AuditorState, error) {
	var total uint64
	if err := binary.Read(buf, binary.BigEndian, &total); err != nil {
		return nil, err
	}
	root, err := readFixed(buf, 32)
	if err != nil {
		return nil, err
	}
	var n uint32
	if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	nodes := make([]LogTreeNode, n)
	for i := range nodes {
		var id uint64
		if err := binary.Read(buf, binary.BigEndian, &id); err != nil {
			return nil, err
		}
		hash, err := readFixed(buf, 32)
		if err != nil {
			return nil, err
		}
		nodes[i] = LogTreeNode{ID: id, Hash: hash}
	}
	return &AuditorState{TotalUpdatesProcessed: total, CurrentPrefixRoot: root, LogNodes: nodes}, nil
}

// AuditorStateAndSignature is the blob persisted to the state repository:
// a serialized AuditorState, self-signed by the auditor so that startup can
// detect corruption or foreign writes before trusting it.
type AuditorStateAndSignature struct {
	SerializedAuditorState []byte
	Signature              []byte // 64 bytes
}

func (s *AuditorStateAndSignature) Marshal(buf *bytes.Buffer) error {
	if len(s.Signature) != 64 {
		return errors.New("state signature must be 64 bytes")
	}
	if err := writeU32Bytes(buf, s.SerializedAuditorState, "serialized auditor state"); err != nil {
		return err
	}
	_, err := buf.Write(s.Signature)
	return err
}

func UnmarshalAuditorStateAndSignature(buf *bytes.Buffer) (*AuditorStateAndSignature, error) {
	serialized, err := readU32Bytes(buf)
	if err != nil {
		return nil, err
	}
	signature, err := readFixed(buf, 64)
	if err != nil {
		return nil, err
	}
	return &AuditorStateAndSignature{SerializedAuditorState: serialized, Signature: signature}, nil
}
