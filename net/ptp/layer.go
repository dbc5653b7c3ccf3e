package ptp

import (
	"errors"

	"github.com/google/gopacket"
)

var LayerTypePTP = gopacket.RegisterLayerType(
	1588,
	gopacket.LayerTypeMetadata{
		Name:    "PTP",
		Decoder: gopacket.DecodeFunc(decodePTP),
	},
)

// BaseLayer is a convenience struct which implements the LayerData and
// LayerPayload functions of the Layer interface.
// Copy-pasted from gopacket/layers (we avoid importing this due its massive size)
type BaseLayer struct {
	// Contents is the set of bytes that make up this layer.
	Contents []byte
	// Payload is the set of bytes that follow the message, e.g., TLVs
	// or the body of a message type that is not decoded.
	Payload []byte
}

func (b *BaseLayer) LayerContents() []byte { return b.Contents }

func (b *BaseLayer) LayerPayload() []byte { return b.Payload }

// Layer exposes a PTP message as a gopacket application layer.
type Layer struct {
	BaseLayer
	Message

	Decoder Decoder
}

func (l *Layer) LayerType() gopacket.LayerType {
	return LayerTypePTP
}

func decodePTP(data []byte, p gopacket.PacketBuilder) error {
	l := &Layer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}

	p.AddLayer(l)
	p.SetApplicationLayer(l)

	return nil
}

func (l *Layer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	msg, rest, err := l.Decoder.Decode(data)
	if err != nil {
		if errors.Is(err, ErrIncompleteData) {
			df.SetTruncated()
		}
		return err
	}
	l.Message = msg
	n := len(data) - len(rest)
	l.Contents = data[:n]
	l.BaseLayer.Payload = data[n:]
	return nil
}

// SerializeTo prepends the encoded message to b. With opts.FixLengths set,
// messageLength is recomputed from the body first.
func (l *Layer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		m, err := NewMessage(l.Header, l.Body)
		if err != nil {
			return err
		}
		l.Header.MessageLength = m.Header.MessageLength
	}
	enc, err := Encode(&l.Message)
	if err != nil {
		return err
	}
	data, err := b.PrependBytes(len(enc))
	if err != nil {
		return err
	}
	copy(data, enc)
	return nil
}

func (l *Layer) CanDecode() gopacket.LayerClass {
	return LayerTypePTP
}

func (l *Layer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (l *Layer) Payload() []byte {
	return l.BaseLayer.Payload
}
