// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
)

var (
	ErrInvalidLeaderKey = apperr.New(apperr.Permission, "invalid leader key")
	ErrInvalidRoomCode  = apperr.New(apperr.Validation, "invalid room code")
)

const roomCodeChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateRoomCode creates a short uppercase base36 code people can type.
// Codes are not guaranteed unique; the code space is large enough in practice.
func GenerateRoomCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate room code: %w", err)
	}
	return base36Encode(binary.BigEndian.Uint64(b), models.RoomCodeLength), nil
}

// base36Encode writes num as exactly width base36 digits, keeping the low digits
func base36Encode(num uint64, width int) string {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = roomCodeChars[num%36]
		num /= 36
	}
	return string(out)
}

// NormalizeRoomCode upper-cases and trims a user-entered code and checks its shape
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.RoomCodeLength {
		return "", ErrInvalidRoomCode
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(roomCodeChars, rune(code[i])) {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}

// GenerateLeaderKey creates an HMAC-based leader key for a room
// This is deterministic and verifiable
func GenerateLeaderKey(roomID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(roomID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateLeaderKey checks if the provided leader key is valid for the room
func ValidateLeaderKey(roomID, leaderKey, salt string) error {
	expected := GenerateLeaderKey(roomID, salt)
	if !hmac.Equal([]byte(leaderKey), []byte(expected)) {
		return ErrInvalidLeaderKey
	}
	return nil
}
