// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the Sensirion word framing shared by the sensor
// driver: every 16-bit word on the wire is followed by a CRC8 byte.
package common

import (
	"errors"
	"fmt"
)

// ErrCRC is returned by Words when a word fails its checksum.
var ErrCRC = errors.New("crc mismatch")

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Polynomial 0x31, initial value 0xff.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// Words decodes a response of 3 byte groups (MSB, LSB, CRC) into words,
// verifying each checksum.
func Words(r []byte) ([]uint16, error) {
	if len(r)%3 != 0 {
		return nil, fmt.Errorf("invalid frame length %d", len(r))
	}
	out := make([]uint16, len(r)/3)
	for ix := range out {
		if CRC8(r[ix*3:ix*3+2]) != r[ix*3+2] {
			return nil, fmt.Errorf("word %d: %w", ix, ErrCRC)
		}
		out[ix] = uint16(r[ix*3])<<8 | uint16(r[ix*3+1])
	}
	return out, nil
}

// Frame encodes words into the wire format, appending a CRC to each word.
func Frame(words ...uint16) []byte {
	b := make([]byte, len(words)*3)
	for ix, w := range words {
		b[ix*3] = byte(w >> 8)
		b[ix*3+1] = byte(w)
		b[ix*3+2] = CRC8(b[ix*3 : ix*3+2])
	}
	return b
}
