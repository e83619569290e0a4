package lnsocket

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message types used by the client.
const (
	MsgInit             uint16 = 16
	MsgPing             uint16 = 18
	MsgPong             uint16 = 19
	MsgCommandoRequest  uint16 = 0x4c4f
	MsgCommandoContinue uint16 = 0x594b
	MsgCommandoReply    uint16 = 0x594d
)

// initFeatures advertises var_onion_optin and static_remotekey as optional.
var initFeatures = []byte{0x22, 0x00}

var errShortMessage = errors.New("lnsocket: short message")

// MessageType returns the type prefix of a raw message.
func MessageType(msg []byte) (uint16, error) {
	if len(msg) < 2 {
		return 0, errShortMessage
	}
	return binary.BigEndian.Uint16(msg), nil
}

func encodeInit() []byte {
	msg := make([]byte, 0, 8+len(initFeatures))
	msg = binary.BigEndian.AppendUint16(msg, MsgInit)
	msg = binary.BigEndian.AppendUint16(msg, 0) // global features
	msg = binary.BigEndian.AppendUint16(msg, uint16(len(initFeatures)))
	msg = append(msg, initFeatures...)
	return msg
}

// encodePong answers a ping with the requested number of zero bytes.
func encodePong(ping []byte) ([]byte, error) {
	if len(ping) < 6 {
		return nil, errShortMessage
	}
	numPongBytes := binary.BigEndian.Uint16(ping[2:4])
	if numPongBytes >= 65532 {
		// Pings asking for this much are not meant to be answered.
		return nil, nil
	}
	msg := make([]byte, 4+int(numPongBytes))
	binary.BigEndian.PutUint16(msg, MsgPong)
	binary.BigEndian.PutUint16(msg[2:], numPongBytes)
	return msg, nil
}

func encodeCommandoRequest(id uint64, body []byte) []byte {
	msg := make([]byte, 0, 10+len(body))
	msg = binary.BigEndian.AppendUint16(msg, MsgCommandoRequest)
	msg = binary.BigEndian.AppendUint64(msg, id)
	return append(msg, body...)
}

// commandoFrame is one commando request or reply message.
type commandoFrame struct {
	Type uint16
	ID   uint64
	Body []byte
}

func decodeCommando(msg []byte) (commandoFrame, error) {
	if len(msg) < 10 {
		return commandoFrame{}, errShortMessage
	}
	typ := binary.BigEndian.Uint16(msg)
	switch typ {
	case MsgCommandoRequest, MsgCommandoContinue, MsgCommandoReply:
	default:
		return commandoFrame{}, fmt.Errorf("lnsocket: type %#x is not a commando message", typ)
	}
	return commandoFrame{Type: typ, ID: binary.BigEndian.Uint64(msg[2:10]), Body: msg[10:]}, nil
}
