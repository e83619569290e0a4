// Package lnsocket speaks just enough of the Lightning peer protocol to issue
// commando RPCs to a Core Lightning node: the BOLT 8 Noise_XK handshake, the
// encrypted message framing, init/ping/pong and the commando request messages.
package lnsocket

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	protocolName = "Noise_XK_secp256k1_ChaChaPoly_SHA256"
	prologue     = "lightning"

	handshakeVersion = 0

	actOneSize   = 1 + 33 + 16
	actTwoSize   = 1 + 33 + 16
	actThreeSize = 1 + 33 + 16 + 16

	macSize = 16

	// keyRotationInterval is the number of messages sent under one key.
	keyRotationInterval = 1000

	// MaxMessageSize is the largest plaintext a single frame may carry.
	MaxMessageSize = 65535
)

var (
	ErrBadVersion   = errors.New("lnsocket: unknown handshake version")
	ErrMessageSize  = errors.New("lnsocket: message exceeds maximum size")
	errShortPayload = errors.New("lnsocket: bad length prefix")
)

// cipherState is one direction of the transport.
type cipherState struct {
	nonce uint64
	key   [32]byte
	salt  [32]byte
	aead  cipher.AEAD
}

func (c *cipherState) init(key, salt [32]byte) {
	c.key = key
	c.salt = salt
	c.nonce = 0
	c.aead, _ = chacha20poly1305.New(c.key[:])
}

func (c *cipherState) nonceBytes() []byte {
	var n [12]byte
	binary.LittleEndian.PutUint64(n[4:], c.nonce)
	return n[:]
}

func (c *cipherState) encrypt(ad, plaintext []byte) []byte {
	out := c.aead.Seal(nil, c.nonceBytes(), plaintext, ad)
	c.advance()
	return out
}

func (c *cipherState) decrypt(ad, ciphertext []byte) ([]byte, error) {
	out, err := c.aead.Open(nil, c.nonceBytes(), ciphertext, ad)
	c.advance()
	return out, err
}

func (c *cipherState) advance() {
	c.nonce++
	if c.nonce == keyRotationInterval {
		ck, k := hkdfPair(c.salt[:], c.key[:])
		c.init(k, ck)
	}
}

// hkdfPair derives two 32 byte outputs with salt as the HKDF salt.
func hkdfPair(salt, ikm []byte) (first, second [32]byte) {
	r := hkdf.New(sha256.New, ikm, salt, nil)
	_, _ = io.ReadFull(r, first[:])
	_, _ = io.ReadFull(r, second[:])
	return first, second
}

// ecdh is BOLT 8's ECDH: the sha256 of the compressed shared point.
func ecdh(priv *btcec.PrivateKey, pub *btcec.PublicKey) [32]byte {
	var point, result btcec.JacobianPoint
	pub.AsJacobian(&point)
	btcec.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()
	shared := btcec.NewPublicKey(&result.X, &result.Y)
	return sha256.Sum256(shared.SerializeCompressed())
}

// handshake holds the symmetric state while the three acts are exchanged.
type handshake struct {
	initiator bool

	local     *btcec.PrivateKey
	ephemeral *btcec.PrivateKey
	remote    *btcec.PublicKey
	remoteEph *btcec.PublicKey

	chainingKey [32]byte
	digest      [32]byte
	tempKey     [32]byte

	genKey func() (*btcec.PrivateKey, error)
}

func newHandshake(initiator bool, local *btcec.PrivateKey, remote *btcec.PublicKey) *handshake {
	h := &handshake{initiator: initiator, local: local, remote: remote, genKey: btcec.NewPrivateKey}
	h.digest = sha256.Sum256([]byte(protocolName))
	h.chainingKey = h.digest
	h.mixHash([]byte(prologue))

	responderStatic := remote
	if !initiator {
		responderStatic = local.PubKey()
	}
	h.mixHash(responderStatic.SerializeCompressed())
	return h
}

func (h *handshake) mixHash(data []byte) {
	s := sha256.New()
	s.Write(h.digest[:])
	s.Write(data)
	copy(h.digest[:], s.Sum(nil))
}

func (h *handshake) mixKey(input [32]byte) {
	h.chainingKey, h.tempKey = hkdfPair(h.chainingKey[:], input[:])
}

func (h *handshake) encryptAndHash(nonce uint64, plaintext []byte) []byte {
	var c cipherState
	c.init(h.tempKey, h.chainingKey)
	c.nonce = nonce
	out := c.aead.Seal(nil, c.nonceBytes(), plaintext, h.digest[:])
	h.mixHash(out)
	return out
}

func (h *handshake) decryptAndHash(nonce uint64, ciphertext []byte) ([]byte, error) {
	var c cipherState
	c.init(h.tempKey, h.chainingKey)
	c.nonce = nonce
	out, err := c.aead.Open(nil, c.nonceBytes(), ciphertext, h.digest[:])
	if err != nil {
		return nil, err
	}
	h.mixHash(ciphertext)
	return out, nil
}

func (h *handshake) genActOne() ([actOneSize]byte, error) {
	var act [actOneSize]byte
	eph, err := h.genKey()
	if err != nil {
		return act, err
	}
	h.ephemeral = eph

	ephPub := eph.PubKey().SerializeCompressed()
	h.mixHash(ephPub)
	h.mixKey(ecdh(eph, h.remote))
	mac := h.encryptAndHash(0, nil)

	act[0] = handshakeVersion
	copy(act[1:34], ephPub)
	copy(act[34:], mac)
	return act, nil
}

func (h *handshake) recvActOne(act [actOneSize]byte) error {
	if act[0] != handshakeVersion {
		return ErrBadVersion
	}
	re, err := btcec.ParsePubKey(act[1:34])
	if err != nil {
		return fmt.Errorf("lnsocket: act one key: %w", err)
	}
	h.remoteEph = re

	h.mixHash(re.SerializeCompressed())
	h.mixKey(ecdh(h.local, re))
	if _, err := h.decryptAndHash(0, act[34:]); err != nil {
		return fmt.Errorf("lnsocket: act one mac: %w", err)
	}
	return nil
}

func (h *handshake) genActTwo() ([actTwoSize]byte, error) {
	var act [actTwoSize]byte
	eph, err := h.genKey()
	if err != nil {
		return act, err
	}
	h.ephemeral = eph

	ephPub := eph.PubKey().SerializeCompressed()
	h.mixHash(ephPub)
	h.mixKey(ecdh(eph, h.remoteEph))
	mac := h.encryptAndHash(0, nil)

	act[0] = handshakeVersion
	copy(act[1:34], ephPub)
	copy(act[34:], mac)
	return act, nil
}

func (h *handshake) recvActTwo(act [actTwoSize]byte) error {
	if act[0] != handshakeVersion {
		return ErrBadVersion
	}
	re, err := btcec.ParsePubKey(act[1:34])
	if err != nil {
		return fmt.Errorf("lnsocket: act two key: %w", err)
	}
	h.remoteEph = re

	h.mixHash(re.SerializeCompressed())
	h.mixKey(ecdh(h.ephemeral, re))
	if _, err := h.decryptAndHash(0, act[34:]); err != nil {
		return fmt.Errorf("lnsocket: act two mac: %w", err)
	}
	return nil
}

func (h *handshake) genActThree() ([actThreeSize]byte, error) {
	var act [actThreeSize]byte

	ourPub := h.encryptAndHash(1, h.local.PubKey().SerializeCompressed())
	h.mixKey(ecdh(h.local, h.remoteEph))
	mac := h.encryptAndHash(0, nil)

	act[0] = handshakeVersion
	copy(act[1:50], ourPub)
	copy(act[50:], mac)
	return act, nil
}

func (h *handshake) recvActThree(act [actThreeSize]byte) error {
	if act[0] != handshakeVersion {
		return ErrBadVersion
	}
	raw, err := h.decryptAndHash(1, act[1:50])
	if err != nil {
		return fmt.Errorf("lnsocket: act three key: %w", err)
	}
	rs, err := btcec.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("lnsocket: act three key: %w", err)
	}
	h.remote = rs

	h.mixKey(ecdh(h.ephemeral, rs))
	if _, err := h.decryptAndHash(0, act[50:]); err != nil {
		return fmt.Errorf("lnsocket: act three mac: %w", err)
	}
	return nil
}

// split derives the transport keys once the handshake is complete.
func (h *handshake) split() (send, recv cipherState) {
	first, second := hkdfPair(h.chainingKey[:], nil)
	if h.initiator {
		send.init(first, h.chainingKey)
		recv.init(second, h.chainingKey)
	} else {
		recv.init(first, h.chainingKey)
		send.init(second, h.chainingKey)
	}
	return send, recv
}

// Machine frames messages over an established BOLT 8 session.
type Machine struct {
	rw     io.ReadWriter
	send   cipherState
	recv   cipherState
	remote *btcec.PublicKey
}

// Initiate runs the initiator side of the handshake over rw.
func Initiate(rw io.ReadWriter, local *btcec.PrivateKey, remote *btcec.PublicKey) (*Machine, error) {
	h := newHandshake(true, local, remote)

	one, err := h.genActOne()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(one[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: write act one: %w", err)
	}

	var two [actTwoSize]byte
	if _, err := io.ReadFull(rw, two[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: read act two: %w", err)
	}
	if err := h.recvActTwo(two); err != nil {
		return nil, err
	}

	three, err := h.genActThree()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(three[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: write act three: %w", err)
	}

	m := &Machine{rw: rw, remote: remote}
	m.send, m.recv = h.split()
	return m, nil
}

// Respond runs the responder side of the handshake over rw. It is what a node
// does when accepting a peer and is used to exercise the initiator in tests.
func Respond(rw io.ReadWriter, local *btcec.PrivateKey) (*Machine, error) {
	h := newHandshake(false, local, nil)

	var one [actOneSize]byte
	if _, err := io.ReadFull(rw, one[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: read act one: %w", err)
	}
	if err := h.recvActOne(one); err != nil {
		return nil, err
	}

	two, err := h.genActTwo()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(two[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: write act two: %w", err)
	}

	var three [actThreeSize]byte
	if _, err := io.ReadFull(rw, three[:]); err != nil {
		return nil, fmt.Errorf("lnsocket: read act three: %w", err)
	}
	if err := h.recvActThree(three); err != nil {
		return nil, err
	}

	m := &Machine{rw: rw, remote: h.remote}
	m.send, m.recv = h.split()
	return m, nil
}

// RemoteKey is the static key of the peer.
func (m *Machine) RemoteKey() *btcec.PublicKey {
	return m.remote
}

// WriteMessage encrypts and writes one message.
func (m *Machine) WriteMessage(msg []byte) error {
	if len(msg) > MaxMessageSize {
		return ErrMessageSize
	}
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(msg)))

	frame := m.send.encrypt(nil, length[:])
	frame = append(frame, m.send.encrypt(nil, msg)...)
	_, err := m.rw.Write(frame)
	return err
}

// ReadMessage reads and decrypts one message.
func (m *Machine) ReadMessage() ([]byte, error) {
	var header [2 + macSize]byte
	if _, err := io.ReadFull(m.rw, header[:]); err != nil {
		return nil, err
	}
	length, err := m.recv.decrypt(nil, header[:])
	if err != nil {
		return nil, fmt.Errorf("lnsocket: length mac: %w", err)
	}
	if len(length) != 2 {
		return nil, errShortPayload
	}

	body := make([]byte, int(binary.BigEndian.Uint16(length))+macSize)
	if _, err := io.ReadFull(m.rw, body); err != nil {
		return nil, err
	}
	msg, err := m.recv.decrypt(nil, body)
	if err != nil {
		return nil, fmt.Errorf("lnsocket: body mac: %w", err)
	}
	return msg, nil
}
