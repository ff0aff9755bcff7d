// Package wire implements the binary encoding of the messages exchanged
// with the remote key-transparency service and persisted to the state
// repository.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	maxUint16 int = 65535
	maxUint32 int = 4294967295
)

func readU16Bytes(buf *bytes.Buffer) ([]byte, error) {
	var size uint16
	if err := binary.Read(buf, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU16Bytes(buf *bytes.Buffer, out []byte, name string) error {
	if len(out) > maxUint16 {
		return errors.New(name + " is too long to marshal")
	} else if err := binary.Write(buf, binary.BigEndian, uint16(len(out))); err != nil {
		return err
	} else if _, err := buf.Write(out); err != nil {
		return err
	}
	return nil
}

func readU32Bytes(buf *bytes.Buffer) ([]byte, error) {
	var size uint32
	if err := binary.Read(buf, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU32Bytes(buf *bytes.Buffer, out []byte, name string) error {
	if len(out) > maxUint32 {
		return errors.New(name + " is too long to marshal")
	} else if err := binary.Write(buf, binary.BigEndian, uint32(len(out))); err != nil {
		return err
	} else if _, err := buf.Write(out); err != nil {
		return err
	}
	return nil
}

func readFixed(buf *bytes.Buffer, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshaller is implemented by every wire structure in this package.
type Marshaller interface {
	Marshal(buf *bytes.Buffer) error
}

// Marshal returns the wire encoding of x.
func Marshal(x Marshaller) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := x.Marshal(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
