package sioclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EngineType represents Engine.IO packet types (the outer framing layer)
type EngineType int

const (
	EngineOpen EngineType = iota
	EngineClose
	EnginePing
	EnginePong
	EngineMessage
	EngineUpgrade
	EngineNoop

	// EngineUnknown marks a frame whose type digit is out of range.
	// Decode keeps the frame rather than failing.
	EngineUnknown EngineType = -1
)

// SocketType represents Socket.IO packet types, carried inside an
// EngineMessage frame
type SocketType int

const (
	SocketConnect SocketType = iota
	SocketDisconnect
	SocketEvent
	SocketAck
	SocketError
	SocketBinaryEvent
	SocketBinaryAck
	SocketControl

	SocketUnknown SocketType = -1
)

// Packet represents a single wire frame. Socket, Attachments, Namespace,
// ID and Payload are only meaningful when Engine == EngineMessage.
// ID == -1 means no acknowledgment was requested.
type Packet struct {
	Engine      EngineType
	Socket      SocketType
	Attachments int
	Namespace   string
	ID          int
	Payload     interface{}
}

// Encode encodes the packet to its wire form
func (p Packet) Encode() (string, error) {
	if p.Engine < EngineOpen || p.Engine > EngineNoop {
		return "", &EncodeError{Err: fmt.Errorf("invalid engine type %d", p.Engine)}
	}

	var builder strings.Builder

	// Engine type digit
	builder.WriteByte(byte('0' + p.Engine))

	// Engine-level packets (open/close/ping/pong/...) carry no body
	if p.Engine != EngineMessage {
		return builder.String(), nil
	}

	if p.Socket < SocketConnect || p.Socket > SocketControl {
		return "", &EncodeError{Err: fmt.Errorf("invalid socket type %d", p.Socket)}
	}

	// Socket type digit
	builder.WriteByte(byte('0' + p.Socket))

	// Attachment count for binary frames
	if p.Socket == SocketBinaryEvent || p.Socket == SocketBinaryAck {
		builder.WriteString(strconv.Itoa(p.Attachments))
		builder.WriteByte('-')
	}

	// Namespace (if not default)
	if p.Namespace != "" && p.Namespace != "/" {
		builder.WriteString(p.Namespace)
		builder.WriteByte(',')
	}

	// Ack ID
	if p.ID >= 0 {
		builder.WriteString(strconv.Itoa(p.ID))
	}

	// Payload
	if p.Payload != nil {
		jsonData, err := json.Marshal(p.Payload)
		if err != nil {
			return "", &EncodeError{Err: fmt.Errorf("failed to marshal packet payload: %w", err)}
		}
		builder.Write(jsonData)
	}

	return builder.String(), nil
}

// Decode decodes a wire frame into a Packet
func Decode(data string) (Packet, error) {
	packet := Packet{
		Engine:    EngineUnknown,
		Socket:    SocketUnknown,
		Namespace: "/",
		ID:        -1,
	}

	if len(data) == 0 {
		return packet, &DecodeError{Raw: data, Err: fmt.Errorf("empty frame")}
	}

	pos := 0

	// Parse engine type. An out-of-range digit stays EngineUnknown
	// rather than failing.
	if data[pos] >= '0' && data[pos] <= '6' {
		packet.Engine = EngineType(data[pos] - '0')
	}
	pos++

	if pos >= len(data) {
		return packet, nil
	}

	// A bare JSON body attached directly to the engine frame (the open
	// handshake carrying the session id). Short-circuits namespace/id
	// parsing entirely.
	if data[pos] == '{' {
		if err := json.Unmarshal([]byte(data[pos:]), &packet.Payload); err != nil {
			return packet, &DecodeError{Raw: data, Err: fmt.Errorf("failed to unmarshal handshake body: %w", err)}
		}
		return packet, nil
	}

	// Parse socket type
	if data[pos] < '0' || data[pos] > '7' {
		return packet, &DecodeError{Raw: data, Err: fmt.Errorf("invalid socket type: %c", data[pos])}
	}
	packet.Socket = SocketType(data[pos] - '0')
	pos++

	if pos >= len(data) {
		return packet, nil
	}

	// Parse namespace. The terminating comma is consumed but not stored.
	if data[pos] == '/' {
		end := strings.IndexByte(data[pos:], ',')
		if end == -1 {
			return packet, &DecodeError{Raw: data, Err: fmt.Errorf("unterminated namespace")}
		}
		packet.Namespace = data[pos : pos+end]
		pos += end + 1
	}

	// Parse ack ID. Absence of digits yields -1.
	start := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	if pos > start {
		id, err := strconv.Atoi(data[start:pos])
		if err != nil {
			return packet, &DecodeError{Raw: data, Err: fmt.Errorf("invalid ack id: %w", err)}
		}
		packet.ID = id
	}

	if pos >= len(data) {
		return packet, nil
	}

	// Parse payload
	if err := json.Unmarshal([]byte(data[pos:]), &packet.Payload); err != nil {
		return packet, &DecodeError{Raw: data, Err: fmt.Errorf("failed to unmarshal packet payload: %w", err)}
	}

	return packet, nil
}

// String returns a diagnostic rendering of every packet field. It is
// meant for logging, not for the wire.
func (p Packet) String() string {
	return fmt.Sprintf("packet{engine: %s, socket: %s, attachments: %d, namespace: %q, id: %d, payload: %v}",
		p.Engine, p.Socket, p.Attachments, p.Namespace, p.ID, p.Payload)
}

// String returns the engine type as a string
func (et EngineType) String() string {
	switch et {
	case EngineOpen:
		return "open"
	case EngineClose:
		return "close"
	case EnginePing:
		return "ping"
	case EnginePong:
		return "pong"
	case EngineMessage:
		return "message"
	case EngineUpgrade:
		return "upgrade"
	case EngineNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// String returns the socket type as a string
func (st SocketType) String() string {
	switch st {
	case SocketConnect:
		return "connect"
	case SocketDisconnect:
		return "disconnect"
	case SocketEvent:
		return "event"
	case SocketAck:
		return "ack"
	case SocketError:
		return "error"
	case SocketBinaryEvent:
		return "binary_event"
	case SocketBinaryAck:
		return "binary_ack"
	case SocketControl:
		return "control"
	default:
		return "unknown"
	}
}
