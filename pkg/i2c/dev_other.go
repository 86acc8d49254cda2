// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package i2c

import (
	"github.com/linuxboot/vbios/pkg/atom"
)

func perform(path string, payloads []atom.I2CPayload) error {
	return ErrUnsupported
}
