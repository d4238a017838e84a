// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel renders the published values into a small status image,
// suitable for a display.Drawer or for serving as PNG.
package panel

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/airsense/monitor"
)

// Background colors.
var (
	Normal   = color.NRGBA{0x10, 0x30, 0x10, 0xff}
	Elevated = color.NRGBA{0x60, 0x10, 0x10, 0xff}
	Stale    = color.NRGBA{0x30, 0x30, 0x30, 0xff}
)

// Panel renders a monitor.Store.
type Panel struct {
	store *monitor.Store
	w, h  int

	mu sync.Mutex // guards face, whose glyph cache is not goroutine safe
	face font.Face
	// Values older than this are drawn as stale.
	maxAge time.Duration
}

// New returns a w×h panel. Values not updated within maxAge are shown as
// missing; zero disables the check.
func New(store *monitor.Store, w, h int, maxAge time.Duration) (*Panel, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("panel: invalid size %dx%d", w, h)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: float64(h) / 5})
	return &Panel{store: store, w: w, h: h, face: face, maxAge: maxAge}, nil
}

// Bounds returns the image size.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

// Lines returns the three text lines drawn on the panel.
func (p *Panel) Lines(now time.Time) []string {
	co2 := "CO2 --"
	if v, ok := fresh(&p.store.CO2Level, now, p.maxAge); ok {
		co2 = fmt.Sprintf("CO2 %d ppm", v)
	}
	temp := "--.- °C"
	if v, ok := fresh(&p.store.Temperature, now, p.maxAge); ok {
		temp = fmt.Sprintf("%.1f °C", v)
	}
	hum := "--.- %RH"
	if v, ok := fresh(&p.store.Humidity, now, p.maxAge); ok {
		hum = fmt.Sprintf("%.1f %%RH", v)
	}
	return []string{co2, temp, hum}
}

// Background returns the fill color for the current state.
func (p *Panel) Background(now time.Time) color.NRGBA {
	if _, ok := fresh(&p.store.CO2Level, now, p.maxAge); !ok {
		return Stale
	}
	if e, _, _ := p.store.CO2Elevated.Get(); e {
		return Elevated
	}
	return Normal
}

// Render draws the panel.
func (p *Panel) Render(now time.Time) image.Image {
	return p.context(now).Image()
}

// WritePNG encodes the panel as PNG.
func (p *Panel) WritePNG(w io.Writer, now time.Time) error {
	return p.context(now).EncodePNG(w)
}

// Draw renders the panel onto d.
func (p *Panel) Draw(d display.Drawer, now time.Time) error {
	return d.Draw(d.Bounds(), p.Render(now), image.Point{})
}

func (p *Panel) context(now time.Time) *gg.Context {
	dc := gg.NewContext(p.w, p.h)
	dc.SetColor(p.Background(now))
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	lines := p.Lines(now)
	step := float64(p.h) / float64(len(lines)+1)
	p.mu.Lock()
	defer p.mu.Unlock()
	dc.SetFontFace(p.face)
	for i, l := range lines {
		dc.DrawStringAnchored(l, float64(p.w)/2, step*float64(i+1), 0.5, 0.5)
	}
	return dc
}

func fresh[T any](v *monitor.Value[T], now time.Time, maxAge time.Duration) (T, bool) {
	x, _, set := v.Get()
	if !set || (maxAge > 0 && v.Age(now) > maxAge) {
		var zero T
		return zero, false
	}
	return x, true
}
