package gossip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/types"
)

// Kind tags a wire message's variant. The tag order is fixed and must
// match bit-for-bit across every peer implementation.
type Kind uint8

const (
	KindPing Kind = iota
	KindPong
	KindNewBlockHashes
	KindGetBlocks
	KindBlocks
	KindNewTransactionHashes
	KindGetTransactions
	KindTransactions
)

// Message is the tagged union of every message a peer can send. Only
// the fields relevant to Kind are populated.
type Message struct {
	Kind Kind

	Nonce uint64 // Ping, Pong

	Hashes []types.H256 // NewBlockHashes, GetBlocks, NewTransactionHashes, GetTransactions

	Blocks []*block.Block // Blocks

	Transactions []block.SignedTransaction // Transactions
}

// Ping constructs a Ping(nonce) message.
func Ping(nonce uint64) Message { return Message{Kind: KindPing, Nonce: nonce} }

// Pong constructs a Pong(nonce) message.
func Pong(nonce uint64) Message { return Message{Kind: KindPong, Nonce: nonce} }

// NewBlockHashes constructs a NewBlockHashes message.
func NewBlockHashes(hashes []types.H256) Message {
	return Message{Kind: KindNewBlockHashes, Hashes: hashes}
}

// GetBlocks constructs a GetBlocks message.
func GetBlocks(hashes []types.H256) Message {
	return Message{Kind: KindGetBlocks, Hashes: hashes}
}

// Blocks constructs a Blocks message.
func Blocks(blocks []*block.Block) Message {
	return Message{Kind: KindBlocks, Blocks: blocks}
}

// NewTransactionHashes constructs a NewTransactionHashes message.
func NewTransactionHashes(hashes []types.H256) Message {
	return Message{Kind: KindNewTransactionHashes, Hashes: hashes}
}

// GetTransactions constructs a GetTransactions message.
func GetTransactions(hashes []types.H256) Message {
	return Message{Kind: KindGetTransactions, Hashes: hashes}
}

// Transactions constructs a Transactions message.
func Transactions(txs []block.SignedTransaction) Message {
	return Message{Kind: KindTransactions, Transactions: txs}
}

// Encode writes the canonical wire encoding of m.
func (m Message) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(m.Kind))

	switch m.Kind {
	case KindPing, KindPong:
		writeMsgUint64(&buf, m.Nonce)

	case KindNewBlockHashes, KindGetBlocks, KindNewTransactionHashes, KindGetTransactions:
		writeMsgUint32(&buf, uint32(len(m.Hashes)))
		for _, h := range m.Hashes {
			buf.Write(h.Bytes())
		}

	case KindBlocks:
		writeMsgUint32(&buf, uint32(len(m.Blocks)))
		for _, b := range m.Blocks {
			encoded := b.Serialize()
			writeMsgUint32(&buf, uint32(len(encoded)))
			buf.Write(encoded)
		}

	case KindTransactions:
		writeMsgUint32(&buf, uint32(len(m.Transactions)))
		for i := range m.Transactions {
			encoded := m.Transactions[i].Serialize()
			writeMsgUint32(&buf, uint32(len(encoded)))
			buf.Write(encoded)
		}
	}

	return buf.Bytes()
}

// Decode parses a Message from its canonical wire encoding.
func Decode(data []byte) (Message, error) {
	r := bytes.NewReader(data)

	kindByte, err := r.ReadByte()
	if err != nil {
		return Message{}, err
	}
	kind := Kind(kindByte)

	switch kind {
	case KindPing, KindPong:
		nonce, err := readMsgUint64(r)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Nonce: nonce}, nil

	case KindNewBlockHashes, KindGetBlocks, KindNewTransactionHashes, KindGetTransactions:
		hashes, err := decodeHashes(r)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Hashes: hashes}, nil

	case KindBlocks:
		count, err := readMsgUint32(r)
		if err != nil {
			return Message{}, err
		}
		blocks := make([]*block.Block, count)
		for i := range blocks {
			size, err := readMsgUint32(r)
			if err != nil {
				return Message{}, err
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return Message{}, err
			}
			b, err := block.DecodeBlock(bytes.NewReader(raw))
			if err != nil {
				return Message{}, err
			}
			blocks[i] = b
		}
		return Message{Kind: kind, Blocks: blocks}, nil

	case KindTransactions:
		count, err := readMsgUint32(r)
		if err != nil {
			return Message{}, err
		}
		txs := make([]block.SignedTransaction, count)
		for i := range txs {
			size, err := readMsgUint32(r)
			if err != nil {
				return Message{}, err
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return Message{}, err
			}
			stx, err := block.DecodeSignedTransaction(bytes.NewReader(raw))
			if err != nil {
				return Message{}, err
			}
			txs[i] = stx
		}
		return Message{Kind: kind, Transactions: txs}, nil

	default:
		return Message{}, fmt.Errorf("gossip: unknown message kind %d", kindByte)
	}
}

func decodeHashes(r io.Reader) ([]types.H256, error) {
	count, err := readMsgUint32(r)
	if err != nil {
		return nil, err
	}
	hashes := make([]types.H256, count)
	for i := range hashes {
		var h types.H256
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

func writeMsgUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeMsgUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readMsgUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readMsgUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
