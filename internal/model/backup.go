// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.
package model

// BackupSchemaVersion is written into every backup so restores can detect
// incompatible dumps.
const BackupSchemaVersion = 1

// BackupData is a container for all data to be exported for a backup.
// Password digests are included so a restore keeps logins working.
type BackupData struct {
	SchemaVersion int `json:"schema_version"`

	Accounts    []Account    `json:"accounts"`
	Credentials []Credential `json:"credentials"`
	Groups      []Group      `json:"groups"`
	Memberships []Membership `json:"memberships"`
}
