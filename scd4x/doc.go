// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd4x provides a driver for the Sensirion SCD4x CO2 sensors running
// in periodic measurement mode. The scd4x family measures Temperature,
// Humidity, and CO2 concentration, producing a new sample every 5 seconds.
//
// Dev.ReadMeasurement is the non-blocking single transaction used by the
// airsense monitor. Dev.Sense waits for the data-ready flag.
//
// Refer to the datasheet for more information.
//
// https://sensirion.com/media/documents/48C4B7FB/66E05452/CD_DS_SCD4x_Datasheet_D1.pdf
package scd4x
