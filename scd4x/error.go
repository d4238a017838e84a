// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import "fmt"

// ErrorCode classifies a failed transaction. Zero means success.
type ErrorCode uint16

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeTx
	ErrCodeCRC
	ErrCodeNotReady
	ErrCodeTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "no error"
	case ErrCodeTx:
		return "bus transaction failed"
	case ErrCodeCRC:
		return "invalid crc"
	case ErrCodeNotReady:
		return "measurement not ready"
	case ErrCodeTimeout:
		return "timeout waiting for data ready status"
	}
	return fmt.Sprintf("error code %d", uint16(c))
}

// Error is returned by every failed command.
type Error struct {
	Code ErrorCode
	// The command word that failed.
	Cmd uint16
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scd4x cmd 0x%04x: %s: %v", e.Cmd, e.Code, e.Err)
	}
	return fmt.Sprintf("scd4x cmd 0x%04x: %s", e.Cmd, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the numeric failure code.
func (e *Error) ErrorCode() uint16 {
	return uint16(e.Code)
}
