// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package indicator

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/maruel/ansi256"
)

func expected(label string, colors ...color.NRGBA) string {
	var sb strings.Builder
	sb.WriteString("\r\033[0m")
	for _, c := range colors {
		sb.WriteString(ansi256.Default.Block(c))
	}
	sb.WriteString("\033[0m ")
	sb.WriteString(label)
	sb.WriteString("\033[K")
	return sb.String()
}

func repeat(c color.NRGBA, n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestDevWrite(t *testing.T) {
	var buf bytes.Buffer
	d := NewDev(&buf, 2, nil)
	if _, err := d.Write([]byte{1, 2}); err == nil {
		t.Error("expected error for partial pixel")
	}
	if _, err := d.Write([]byte{0xff, 0, 0, 0, 0xff, 0}); err != nil {
		t.Fatal(err)
	}
	want := expected("", color.NRGBA{0xff, 0, 0, 0xff}, color.NRGBA{0, 0xff, 0, 0xff})
	if got := buf.String(); got != want {
		t.Errorf("got %q want %q", got, want)
	}
	buf.Reset()
	d.SetLabel("hi")
	if _, err := d.Write([]byte{0, 0, 0xff}); err != nil {
		t.Fatal(err)
	}
	want = expected("hi", color.NRGBA{0, 0, 0xff, 0xff}, color.NRGBA{0, 0xff, 0, 0xff})
	if got := buf.String(); got != want {
		t.Errorf("got %q want %q", got, want)
	}
	if d.Bounds().Dx() != 2 || d.Bounds().Dy() != 1 {
		t.Errorf("Bounds()=%v", d.Bounds())
	}
	buf.Reset()
	if err := d.Halt(); err != nil || buf.String() != "\n\033[0m" {
		t.Errorf("Halt()=%v wrote %q", err, buf.String())
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		name     string
		level    uint16
		elevated bool
		want     []color.NRGBA
	}{
		{name: "empty", level: 0, want: repeat(Off, 10)},
		{name: "good", level: 400, want: append(repeat(Good, 2), repeat(Off, 8)...)},
		{name: "fair", level: 900, want: append(repeat(Fair, 4), repeat(Off, 6)...)},
		{name: "poor", level: 1200, want: append(repeat(Poor, 6), repeat(Off, 4)...)},
		{name: "elevated", level: 1200, elevated: true, want: append(repeat(Elevated, 6), repeat(Off, 4)...)},
		{name: "clipped", level: 5000, elevated: true, want: repeat(Elevated, 10)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			b := NewBar(NewDev(&buf, 10, nil), nil)
			b.PublishCO2Elevated(test.elevated)
			buf.Reset()
			b.PublishCO2Level(test.level)
			if got, want := buf.String(), expected(fmt.Sprintf("CO2 %d ppm", test.level), test.want...); got != want {
				t.Errorf("got %q want %q", got, want)
			}
		})
	}
}

func TestBarIgnoresOtherChannels(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(NewDev(&buf, 4, nil), &Opts{FullScale: 1000, Threshold: 500})
	b.PublishTemperature(20)
	b.PublishHumidity(50)
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
	b.PublishCO2Level(600)
	img := b.Render()
	if got := img.NRGBAAt(1, 0); got != Poor {
		t.Errorf("pixel=%v expected %v", got, Poor)
	}
	if got := img.NRGBAAt(3, 0); got != Off {
		t.Errorf("pixel=%v expected %v", got, Off)
	}
}
