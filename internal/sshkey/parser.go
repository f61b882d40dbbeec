// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey inspects public keys stored as credentials. Keys are kept
// verbatim; inspection only adds informational fields such as the
// fingerprint.
package sshkey

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrNotSSHKey is returned by Inspect when the blob is not an OpenSSH
// authorized_keys line.
var ErrNotSSHKey = errors.New("not an ssh public key")

// Parse splits a raw public key string (like one from an authorized_keys file)
// into its three core components: algorithm, key data, and comment.
// Leading options (e.g. from="...",command="...") are skipped.
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") || strings.HasPrefix(field, "sk-") {
			keyStartIndex = i
			break
		}
	}
	if keyStartIndex == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}
	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}
	return
}

// Info is what Inspect learns about a key.
type Info struct {
	Algorithm   string
	Fingerprint string
	Comment     string
}

// Inspect decodes the first line of raw and returns its algorithm, SHA256
// fingerprint and comment.
func Inspect(raw string) (Info, error) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if _, _, _, err := Parse(line); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotSSHKey, err)
	}
	pk, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotSSHKey, err)
	}
	return Info{
		Algorithm:   pk.Type(),
		Fingerprint: ssh.FingerprintSHA256(pk),
		Comment:     comment,
	}, nil
}
