package ina228

// I2C register operations (big-endian: MSB first).

func (d *Device) read16(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) read24(reg byte) (uint32, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:3]); err != nil {
		return 0, err
	}
	return uint32(d.r[0])<<16 | uint32(d.r[1])<<8 | uint32(d.r[2]), nil
}

// read20 returns the signed 20-bit value held in bits 23:4.
func (d *Device) read20(reg byte) (int32, error) {
	u, err := d.read24(reg)
	if err != nil {
		return 0, err
	}
	return int32(u<<8) >> 12, nil
}

func (d *Device) write16(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
