package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ktaudit/ktaudit/crypto/keys"
)

// AuditorTreeHead is transmitted to the remote service after each signing
// step.
type AuditorTreeHead struct {
	TreeSize    uint64
	TimestampMs int64
	Signature   []byte
}

func (h *AuditorTreeHead) Marshal(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.BigEndian, h.TreeSize); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, h.TimestampMs); err != nil {
		return err
	}
	return writeU16Bytes(buf, h.Signature, "auditor signature")
}

func UnmarshalAuditorTreeHead(buf *bytes.Buffer) (*AuditorTreeHead, error) {
	var treeSize uint64
	if err := binary.Read(buf, binary.BigEndian, &treeSize); err != nil {
		return nil, err
	}
	var timestampMs int64
	if err := binary.Read(buf, binary.BigEndian, &timestampMs); err != nil {
		return nil, err
	}
	signature, err := readU16Bytes(buf)
	if err != nil {
		return nil, err
	}
	return &AuditorTreeHead{TreeSize: treeSize, TimestampMs: timestampMs, Signature: signature}, nil
}

// Cipher suite and deployment mode identifiers baked into the signed
// payload header. This auditor supports exactly one configuration.
const (
	cipherSuiteByte0   byte = 0x00
	cipherSuiteByte1   byte = 0x00
	deploymentModeByte byte = 0x03 // third-party auditing

	signedPayloadSize = 153
	rawPubkeySize     = 32
)

// SignedPayloadConfig identifies the key-transparency deployment this
// auditor is countersigning for: the service's signing and VRF public
// keys, and the auditor's own public key, all in raw 32-byte Ed25519 form.
type SignedPayloadConfig struct {
	SigningPublicKey keys.PublicKey
	VRFPublicKey     keys.PublicKey
	AuditorPublicKey keys.PublicKey
}

// BuildSignedPayload lays out the fixed 153-byte tree-head signing payload.
func BuildSignedPayload(config SignedPayloadConfig, treeSize uint64, timestampMs int64, logRoot []byte) ([]byte, error) {
	if len(logRoot) != 32 {
		return nil, errors.New("log root must be 32 bytes")
	}

	buf := &bytes.Buffer{}
	buf.WriteByte(cipherSuiteByte0)
	buf.WriteByte(cipherSuiteByte1)
	buf.WriteByte(deploymentModeByte)

	for _, pub := range []keys.PublicKey{config.SigningPublicKey, config.VRFPublicKey, config.AuditorPublicKey} {
		raw := pub.Bytes()
		if len(raw) != rawPubkeySize {
			return nil, errors.New("public key must be 32 bytes raw")
		}
		if err := binary.Write(buf, binary.BigEndian, uint16(len(raw))); err != nil {
			return nil, err
		}
		buf.Write(raw)
	}

	if err := binary.Write(buf, binary.BigEndian, treeSize); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, timestampMs); err != nil {
		return nil, err
	}
	buf.Write(logRoot)

	if buf.Len() != signedPayloadSize {
		return nil, errors.New("signed payload built to the wrong length")
	}
	return buf.Bytes(), nil
}

// SignTreeHead builds the signed payload and signs it with the auditor's
// private key, returning a ready-to-transmit AuditorTreeHead.
func SignTreeHead(priv keys.PrivateKey, config SignedPayloadConfig, treeSize uint64, timestampMs int64, logRoot []byte) (*AuditorTreeHead, error) {
	payload, err := BuildSignedPayload(config, treeSize, timestampMs, logRoot)
	if err != nil {
		return nil, err
	}
	return &AuditorTreeHead{
		TreeSize:    treeSize,
		TimestampMs: timestampMs,
		Signature:   priv.Sign(payload),
	}, nil
}
