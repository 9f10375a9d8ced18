//go:build rp2040

package main

const deviceName = "pico-w"
