// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the primary keys of gallery rows.

Keys are UUIDv7: time ordered, so component and demo inserts append to the
primary key index instead of scattering across it.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string. It panics only when the OS random
// source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}
