// storage/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package storage

import "errors"

var ErrInvalidURL = errors.New("invalid storage URL")
