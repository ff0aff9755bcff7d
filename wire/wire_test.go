package wire

import (
	"bytes"
	"testing"

	"github.com/ktaudit/ktaudit/crypto/keys"
	"github.com/ktaudit/ktaudit/tree/log"
	"github.com/ktaudit/ktaudit/tree/prefix"
)

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestAuditorUpdateRoundTrip(t *testing.T) {
	original := &AuditorUpdate{
		Real:       true,
		Index:      fill(32, 0x01),
		Seed:       fill(16, 0x02),
		Commitment: fill(32, 0x03),
		Proof: prefix.DifferentKeyProof{
			OldSeed: fill(16, 0x04),
			Copath:  [][]byte{fill(32, 0x05), fill(32, 0x06)},
		},
	}

	buf := &bytes.Buffer{}
	if err := original.Marshal(buf); err != nil {
		t.Fatal(err)
	}

	got, err := UnmarshalAuditorUpdate(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Real != original.Real ||
		!bytes.Equal(got.Index, original.Index) ||
		!bytes.Equal(got.Seed, original.Seed) ||
		!bytes.Equal(got.Commitment, original.Commitment) {
		t.Fatalf("round trip changed fixed fields: got=%+v want=%+v", got, original)
	}
	gotProof, ok := got.Proof.(prefix.DifferentKeyProof)
	if !ok {
		t.Fatalf("round trip changed proof type: %T", got.Proof)
	}
	wantProof := original.Proof.(prefix.DifferentKeyProof)
	if !bytes.Equal(gotProof.OldSeed, wantProof.OldSeed) || len(gotProof.Copath) != len(wantProof.Copath) {
		t.Fatalf("round trip changed proof contents: got=%+v want=%+v", gotProof, wantProof)
	}
}

func TestAuditResponseRoundTrip(t *testing.T) {
	original := &AuditResponse{
		Updates: []*AuditorUpdate{
			{Real: true, Index: fill(32, 0), Seed: fill(16, 0), Commitment: fill(32, 0), Proof: prefix.NewTreeProof{}},
			{
				Real: true, Index: fill(32, 1), Seed: fill(16, 1), Commitment: fill(32, 1),
				Proof: prefix.SameKeyProof{Counter: 3, FirstLogPosition: 7, Copath: [][]byte{fill(32, 9)}},
			},
		},
		More: true,
	}

	buf := &bytes.Buffer{}
	if err := original.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAuditResponse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.More != original.More || len(got.Updates) != len(original.Updates) {
		t.Fatalf("round trip mismatch: got=%+v", got)
	}
}

func TestAuditorTreeHeadRoundTrip(t *testing.T) {
	original := &AuditorTreeHead{
		TreeSize:    42,
		TimestampMs: -5, // predates the epoch; the field is signed on the wire
		Signature:   fill(64, 0xab),
	}
	buf := &bytes.Buffer{}
	if err := original.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAuditorTreeHead(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.TreeSize != original.TreeSize || got.TimestampMs != original.TimestampMs || !bytes.Equal(got.Signature, original.Signature) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, original)
	}
}

func TestBuildSignedPayloadLength(t *testing.T) {
	priv := testPrivateKey(t)
	config := SignedPayloadConfig{
		SigningPublicKey: priv.Public(),
		VRFPublicKey:     priv.Public(),
		AuditorPublicKey: priv.Public(),
	}
	payload, err := BuildSignedPayload(config, 10, 1000, fill(32, 0xee))
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) != signedPayloadSize {
		t.Fatalf("payload length = %d, want %d", len(payload), signedPayloadSize)
	}
	if payload[0] != 0x00 || payload[1] != 0x00 || payload[2] != 0x03 {
		t.Fatalf("unexpected header bytes: %x", payload[:3])
	}
}

func TestSignTreeHeadVerifies(t *testing.T) {
	priv := testPrivateKey(t)
	config := SignedPayloadConfig{
		SigningPublicKey: priv.Public(),
		VRFPublicKey:     priv.Public(),
		AuditorPublicKey: priv.Public(),
	}
	head, err := SignTreeHead(priv, config, 10, 1000, fill(32, 0xee))
	if err != nil {
		t.Fatal(err)
	}
	payload, err := BuildSignedPayload(config, 10, 1000, fill(32, 0xee))
	if err != nil {
		t.Fatal(err)
	}
	if !priv.Public().Verify(payload, head.Signature) {
		t.Fatal("signature produced by SignTreeHead does not verify")
	}
}

func TestAuditorStateRoundTrip(t *testing.T) {
	original := &AuditorState{
		TotalUpdatesProcessed: 99,
		CurrentPrefixRoot:     fill(32, 0x07),
		LogNodes: FromLogNodes([]log.Node{
			{ID: 1, Hash: fill(32, 0x01)},
			{ID: 4, Hash: fill(32, 0x02)},
		}),
	}
	buf := &bytes.Buffer{}
	if err := original.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAuditorState(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalUpdatesProcessed != original.TotalUpdatesProcessed ||
		!bytes.Equal(got.CurrentPrefixRoot, original.CurrentPrefixRoot) ||
		len(got.LogNodes) != len(original.LogNodes) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, original)
	}
	restored := log.FromPersisted(ToLogNodes(got.LogNodes), 3)
	if restored == nil {
		t.Fatal("expected a non-nil restored log tree")
	}
}

func TestAuditorStateAndSignatureRoundTrip(t *testing.T) {
	original := &AuditorStateAndSignature{
		SerializedAuditorState: []byte{0x01, 0x02, 0x03},
		Signature:              fill(64, 0x09),
	}
	buf := &bytes.Buffer{}
	if err := original.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAuditorStateAndSignature(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.SerializedAuditorState, original.SerializedAuditorState) || !bytes.Equal(got.Signature, original.Signature) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, original)
	}
}

// testPrivateKey returns a deterministic Ed25519 private key wrapped the way
// ParsePrivateKey would produce it, without depending on a fixture file.
func testPrivateKey(t *testing.T) keys.PrivateKey {
	t.Helper()
	const encoded = "MC4CAQAwBQYDK2VwBCIEIBqp2CKHfv6BZrdQGCF9u7mAIp8dKpO5A98VUoSDBbMj"
	priv, err := keys.ParsePrivateKey(encoded)
	if err != nil {
		t.Fatalf("test fixture key failed to parse: %v", err)
	}
	return priv
}
