//go:build rp2350

package main

const deviceName = "pico2-w"
