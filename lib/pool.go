package lib

import (
	"fmt"
	"log"

	rp "github.com/Clouded-Sabre/ringpool/lib"
)

var (
	emptySlice []byte
	chunkSize  int
	Pool       *rp.RingPool
)

func setEmptySlice(length int) {
	emptySlice = make([]byte, length)
}

// InitPool creates the shared payload chunk pool. chunkLength must be large
// enough for the biggest TCP payload the engine will ever copy, typically
// 65535 bytes.
func InitPool(poolSize, chunkLength int, debug bool) {
	chunkSize = chunkLength
	setEmptySlice(chunkLength)
	rp.Debug = debug
	Pool = rp.NewRingPool("tcprx", poolSize, NewPayload, chunkLength)
}

// Payload represents a pooled packet payload byte slice
type Payload struct {
	payloadBytes []byte
	length       int
}

// NewPayload creates a new pool chunk. params[0] is the chunk length in bytes.
func NewPayload(params ...interface{}) rp.DataInterface {
	if len(params) != 1 {
		log.Println("NewPayload: Invalid number of calling parameters. Should be only one: bufferLength")
		return nil
	}

	bufferLength, ok := params[0].(int)
	if !ok {
		log.Println("NewPayload: Invalid data type of bufferLength. Should be of type int")
		return nil
	}

	if len(emptySlice) == 0 { // initialize it
		setEmptySlice(bufferLength)
	}

	return &Payload{
		payloadBytes: make([]byte, bufferLength),
	}
}

// Reset resets the content of the payload
func (p *Payload) Reset() {
	copy(p.payloadBytes, emptySlice)
	p.length = 0
}

// PrintContent prints the content of the payload
func (p *Payload) PrintContent() {
	fmt.Println("Content:", string(p.payloadBytes[:p.length]))
}

func (p *Payload) Copy(src []byte) error {
	if len(src) > len(p.payloadBytes) {
		err := fmt.Errorf("Payload Copy: Source byte slice(%d) is longer than bufferLength(%d)", len(src), len(p.payloadBytes))
		return err
	}
	if len(src) == 0 {
		err := fmt.Errorf("Payload Copy: Source byte slice is empty")
		return err
	}
	copy(p.payloadBytes, src)
	p.length = len(src)
	return nil
}

func (p *Payload) GetSlice() []byte {
	return p.payloadBytes[:p.length]
}
