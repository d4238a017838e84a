// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package indicator

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// Colors of the bar.
var (
	Off      = color.NRGBA{0x20, 0x20, 0x20, 0xff}
	Good     = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	Fair     = color.NRGBA{0xe0, 0xc0, 0x00, 0xff}
	Poor     = color.NRGBA{0xff, 0x80, 0x00, 0xff}
	Elevated = color.NRGBA{0xff, 0x00, 0x00, 0xff}
)

// Opts configures a Bar.
type Opts struct {
	// CO2 level filling the whole bar. Default 2000 ppm.
	FullScale uint16
	// Level above which the bar turns from Fair to Poor. Default
	// monitor.DefaultCO2Threshold.
	Threshold uint16
	Logger    *slog.Logger
}

// Bar draws the CO2 level onto a 1D display. It implements
// monitor.Publisher; only the CO2 updates are shown.
type Bar struct {
	d         display.Drawer
	fullScale uint16
	threshold uint16
	log       *slog.Logger

	mu       sync.Mutex
	level    uint16
	elevated bool
}

// NewBar returns a bar drawing on d.
func NewBar(d display.Drawer, opts *Opts) *Bar {
	b := &Bar{d: d, fullScale: 2000, threshold: monitor.DefaultCO2Threshold, log: slog.Default()}
	if opts != nil {
		if opts.FullScale != 0 {
			b.fullScale = opts.FullScale
		}
		if opts.Threshold != 0 {
			b.threshold = opts.Threshold
		}
		if opts.Logger != nil {
			b.log = opts.Logger
		}
	}
	return b
}

func (b *Bar) PublishTemperature(float32) {}

func (b *Bar) PublishHumidity(float32) {}

func (b *Bar) PublishCO2Level(ppm uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = ppm
	b.draw()
}

func (b *Bar) PublishCO2Elevated(elevated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elevated = elevated
	b.draw()
}

// Render returns the image for the current state.
func (b *Bar) Render() *image.NRGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render()
}

func (b *Bar) render() *image.NRGBA {
	bounds := b.d.Bounds()
	img := image.NewNRGBA(bounds)
	width := bounds.Dx()
	lit := int(uint32(b.level) * uint32(width) / uint32(b.fullScale))
	if lit > width {
		lit = width
	}
	c := b.color()
	for x := 0; x < width; x++ {
		if x < lit {
			img.SetNRGBA(bounds.Min.X+x, bounds.Min.Y, c)
		} else {
			img.SetNRGBA(bounds.Min.X+x, bounds.Min.Y, Off)
		}
	}
	return img
}

func (b *Bar) color() color.NRGBA {
	switch {
	case b.elevated:
		return Elevated
	case b.level > b.threshold:
		return Poor
	case b.level > b.threshold*4/5:
		return Fair
	}
	return Good
}

// labeler is implemented by drawers that can show text next to the strip.
type labeler interface {
	SetLabel(s string)
}

func (b *Bar) draw() {
	if l, ok := b.d.(labeler); ok {
		l.SetLabel(fmt.Sprintf("CO2 %d ppm", b.level))
	}
	if err := b.d.Draw(b.d.Bounds(), b.render(), image.Point{}); err != nil {
		b.log.Warn("indicator draw failed", "err", err)
	}
}

var _ monitor.Publisher = &Bar{}
