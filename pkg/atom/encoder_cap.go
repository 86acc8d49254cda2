// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

// EncoderCapInfo lists the link capabilities of an encoder.
type EncoderCapInfo struct {
	MSTEnabled    bool
	DPHBR2Enabled bool
	DPHBR3Enabled bool
	HDMI6GEnabled bool
}

// EncoderCapInfo reads the capability record of the encoder id.
func (p *Parser) EncoderCapInfo(id ObjectID) (EncoderCapInfo, error) {
	s := p.load()
	e, err := s.graph.resolve(id)
	if err != nil {
		return EncoderCapInfo{}, err
	}
	rec, err := s.graph.encoderCapRecord(e)
	if err != nil {
		return EncoderCapInfo{}, err
	}
	return EncoderCapInfo{
		MSTEnabled:    rec.EncoderCap&EncoderCapMSTEn != 0,
		DPHBR2Enabled: rec.EncoderCap&EncoderCapHBR2En != 0,
		DPHBR3Enabled: rec.EncoderCap&EncoderCapHBR3En != 0,
		HDMI6GEnabled: rec.EncoderCap&EncoderCapHDMI6GEn != 0,
	}, nil
}
