package uuid

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid"
)

// Generator UUID generator interface
type Generator interface {
	Generate() (string, error)
}

// NanoIDGenerator UUID implementation using NanoID
type NanoIDGenerator struct {
	Length int
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator create a new `NanoIDGenerator` instance
func NewNanoIDGenerator(length int) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &NanoIDGenerator{Length: length}
}

// Generate generate UUID
func (ns *NanoIDGenerator) Generate() (string, error) {
	return gonanoid.Nanoid(ns.Length)
}

// SerialAlphabet characters used in the random part of a serial
const SerialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SerialGenerator generates human readable serials like CERT-1600000000000-X8K2M0Q7Z
type SerialGenerator struct {
	Prefix string
	Length int              // length of the random suffix
	Clock  func() time.Time // defaults to time.Now
}

var _ Generator = &SerialGenerator{}

// NewSerialGenerator .
func NewSerialGenerator(prefix string, length int) *SerialGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &SerialGenerator{Prefix: prefix, Length: length, Clock: time.Now}
}

// Generate <prefix>-<unix milliseconds>-<random suffix>
func (sg *SerialGenerator) Generate() (string, error) {
	suffix, err := gonanoid.Generate(SerialAlphabet, sg.Length)
	if err != nil {
		return "", err
	}
	clock := sg.Clock
	if clock == nil {
		clock = time.Now
	}
	ms := clock().UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("%s-%d-%s", sg.Prefix, ms, suffix), nil
}
