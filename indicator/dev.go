// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package indicator shows the CO2 level as a 1D LED strip rendered on a
// terminal with ANSI color codes.
package indicator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Dev is a 1D strip emulator writing a single, continuously redrawn
// terminal line: the pixels followed by an optional text label.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette

	mu     sync.Mutex
	pixels []color.NRGBA
	label  string
	buf    bytes.Buffer
}

// NewDev returns a strip of length pixels writing to w. A nil w selects
// stdout, with ANSI translation on Windows consoles. A nil palette selects
// ansi256.Default.
func NewDev(w io.Writer, length int, palette *ansi256.Palette) *Dev {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	if palette == nil {
		palette = ansi256.Default
	}
	return &Dev{w: w, palette: *palette, pixels: make([]color.NRGBA, length)}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Indicator{%d}", len(d.pixels))
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes and ends the line.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, "\n\033[0m")
	return err
}

// SetLabel sets the text shown after the strip. It is drawn on the next
// refresh.
func (d *Dev) SetLabel(s string) {
	d.mu.Lock()
	d.label = s
	d.mu.Unlock()
}

// Write accepts a stream of raw RGB pixels.
func (d *Dev) Write(rgb []byte) (int, error) {
	if len(rgb)%3 != 0 {
		return 0, errors.New("indicator: invalid RGB stream length")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < len(d.pixels) && 3*i+2 < len(rgb); i++ {
		d.pixels[i] = color.NRGBA{rgb[3*i], rgb[3*i+1], rgb[3*i+2], 0xff}
	}
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return len(rgb), nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, len(d.pixels), 1)
}

// Draw implements display.Drawer. Only the first row of src is used.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	d.mu.Lock()
	defer d.mu.Unlock()
	for x := r.Min.X; x < r.Max.X; x++ {
		p := sp.Add(image.Pt(x-r.Min.X, 0))
		if !p.In(src.Bounds()) {
			break
		}
		c := color.NRGBAModel.Convert(src.At(p.X, p.Y)).(color.NRGBA)
		c.A = 0xff
		d.pixels[x] = c
	}
	return d.refresh()
}

// refresh redraws the line in place. d.mu must be held.
func (d *Dev) refresh() error {
	d.buf.Reset()
	d.buf.WriteString("\r\033[0m")
	for _, c := range d.pixels {
		d.buf.WriteString(d.palette.Block(c))
	}
	d.buf.WriteString("\033[0m ")
	d.buf.WriteString(d.label)
	d.buf.WriteString("\033[K")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
