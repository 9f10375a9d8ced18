package ina228

// Register map.
const (
	regConfig         byte = 0x00
	regADCConfig      byte = 0x01
	regShuntCal       byte = 0x02
	regShuntTempco    byte = 0x03
	regVShunt         byte = 0x04 // 24-bit, bits 23:4
	regVBus           byte = 0x05 // 24-bit, bits 23:4
	regDieTemp        byte = 0x06
	regCurrent        byte = 0x07 // 24-bit, bits 23:4
	regPower          byte = 0x08 // 24-bit
	regEnergy         byte = 0x09 // 40-bit
	regCharge         byte = 0x0A // 40-bit
	regDiagAlrt       byte = 0x0B
	regManufacturerID byte = 0x3E
	regDeviceID       byte = 0x3F
)

// CONFIG bits.
const (
	configRST      uint16 = 1 << 15
	configADCRange uint16 = 1 << 4
)

// ADC_CONFIG: continuous bus, shunt and temperature; 1052 µs conversions,
// 1 sample averaging (power-on default).
const ADCConfigDefault uint16 = 0xFB68

const (
	ManufacturerTI uint16 = 0x5449 // "TI"
	DeviceINA228   uint16 = 0x228
)
