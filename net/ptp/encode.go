package ptp

import (
	"bytes"
	"io"

	"example.com/ptpwire/base/bitstream"
)

// Encode serializes m in network byte order.
func Encode(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(m.Len())
	err := EncodeTo(&buf, m, bitstream.BigEndian)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo serializes m to out using the given bit order. Errors returned
// by out are passed through unchanged.
func EncodeTo(out io.Writer, m *Message, order bitstream.Order) error {
	w := bitstream.NewWriter(out, order)
	err := m.SerializeBits(w)
	if err != nil {
		return err
	}
	return w.Close()
}
