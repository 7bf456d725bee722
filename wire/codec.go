// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the length-delimited tagged-union envelope
// every peer-to-peer message shares. No schema-based third-party codec
// from the retrieved example pack fit a 512-byte UDP datagram budget
// this tightly, so the frame is built directly on encoding/binary; see
// DESIGN.md.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/spherenet/sim/math32"
)

// MaxDatagramSize is the largest encoded message this codec will ever
// produce or accept.
const MaxDatagramSize = 512

// Tag identifies which message variant follows the envelope header.
type Tag uint8

const (
	TagPeerAnnounce Tag = 1 + iota
	TagGlobalState
	TagObjectUpdate
	TagScenarioChange
)

var errUnknownTag = errors.New("wire: unknown message tag")
var errTruncated = errors.New("wire: truncated or malformed datagram")
var errTooLarge = errors.New("wire: encoded message exceeds MaxDatagramSize")

// PeerAnnounce is broadcast on startup and whenever a new peer is
// discovered.
type PeerAnnounce struct {
	PeerID uint8
	Port   uint16
}

// GlobalState mirrors params.Shared except for the graphics rate and the
// integration method; an inbound GlobalState overwrites every field it
// carries, with no merge.
type GlobalState struct {
	Paused          bool
	GravityEnabled  bool
	GravityY        float32
	Elasticity      float32
	StaticFriction  float32
	DynamicFriction float32
	TargetSimHz     float32
	TargetNetHz     float32
}

// ObjectUpdate carries one owned body's authoritative state.
type ObjectUpdate struct {
	ObjectID    uint32
	Position    math32.Vector3
	Rotation    math32.Vector3
	Velocity    math32.Vector3
	Scale       math32.Vector3
	OwnerPeerID uint8
}

// ScenarioChange is an imperative to tear down and reload a scenario.
type ScenarioChange struct {
	ScenarioID uint8
}

// Message is the outer envelope shared by every wire message. Body holds
// exactly one of PeerAnnounce, GlobalState, ObjectUpdate or
// ScenarioChange.
type Message struct {
	TimestampMs uint64
	Body        interface{}
}

func tagOf(body interface{}) (Tag, error) {
	switch body.(type) {
	case PeerAnnounce:
		return TagPeerAnnounce, nil
	case GlobalState:
		return TagGlobalState, nil
	case ObjectUpdate:
		return TagObjectUpdate, nil
	case ScenarioChange:
		return TagScenarioChange, nil
	default:
		return 0, errUnknownTag
	}
}

// Encode serializes msg into a length-framed datagram: u16 length (of
// everything after the length field) | u8 tag | u64 timestamp_ms |
// fixed-size payload.
func Encode(msg Message) ([]byte, error) {
	tag, err := tagOf(msg.Body)
	if err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.BigEndian, msg.Body); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	header := struct {
		Tag         uint8
		TimestampMs uint64
	}{uint8(tag), msg.TimestampMs}
	if err := binary.Write(&out, binary.BigEndian, header); err != nil {
		return nil, err
	}
	out.Write(payload.Bytes())

	total := out.Len()
	if total+2 > MaxDatagramSize {
		return nil, errTooLarge
	}

	framed := make([]byte, 2+total)
	binary.BigEndian.PutUint16(framed, uint16(total))
	copy(framed[2:], out.Bytes())
	return framed, nil
}

// Decode parses a datagram produced by Encode. Unknown tags and malformed
// buffers are reported as errors; callers are expected to drop the
// datagram silently on any error (spec 4.E / 7).
func Decode(buf []byte) (Message, error) {
	if len(buf) < 2 {
		return Message{}, errTruncated
	}
	length := int(binary.BigEndian.Uint16(buf))
	if length+2 > len(buf) || length < 9 {
		return Message{}, errTruncated
	}
	body := buf[2 : 2+length]

	var header struct {
		Tag         uint8
		TimestampMs uint64
	}
	r := bytes.NewReader(body)
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return Message{}, errTruncated
	}

	switch Tag(header.Tag) {
	case TagPeerAnnounce:
		var v PeerAnnounce
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Message{}, errTruncated
		}
		return Message{TimestampMs: header.TimestampMs, Body: v}, nil
	case TagGlobalState:
		var v GlobalState
		if err := readGlobalState(r, &v); err != nil {
			return Message{}, errTruncated
		}
		return Message{TimestampMs: header.TimestampMs, Body: v}, nil
	case TagObjectUpdate:
		var v ObjectUpdate
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Message{}, errTruncated
		}
		return Message{TimestampMs: header.TimestampMs, Body: v}, nil
	case TagScenarioChange:
		var v ScenarioChange
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Message{}, errTruncated
		}
		return Message{TimestampMs: header.TimestampMs, Body: v}, nil
	default:
		return Message{}, errUnknownTag
	}
}

// readGlobalState decodes the two bool fields as single bytes, matching
// how binary.Write encodes Go bool (1 byte, 0 or 1).
func readGlobalState(r *bytes.Reader, v *GlobalState) error {
	return binary.Read(r, binary.BigEndian, v)
}
