package protocol

// The packed item field squeezes four values into one 32-bit word:
//
//	bits [31:24]  transaction direction in the low nibble, rarity tier
//	              in the high nibble (zero when no rarity system loads)
//	bits [23:16]  quantity percent as a two's-complement byte
//	              (0x80..0xff represent -128..-1)
//	bits [15:0]   sell price percent as a two's-complement halfword
//	              (0x8000..0xffff represent -32768..-1)
//
// The lossy-width reinterpretation is intentional and a compatibility
// contract between sender and receiver; decoders must reverse it
// exactly.

// PackItemFlags builds the packed field. quantityPercent must fit a
// signed byte and sellPricePercent a signed halfword; wider values wrap
// per the contract above.
func PackItemFlags(direction, rarity uint8, quantityPercent, sellPricePercent int) uint32 {
	hi := uint32(direction&0x0f) | uint32(rarity&0x0f)<<4
	return hi<<24 | (uint32(quantityPercent)&0xff)<<16 | uint32(sellPricePercent)&0xffff
}

// UnpackItemFlags reverses PackItemFlags, restoring the signed
// sub-fields from their two's-complement encodings.
func UnpackItemFlags(packed uint32) (direction, rarity uint8, quantityPercent, sellPricePercent int) {
	direction = uint8(packed>>24) & 0x0f
	rarity = uint8(packed>>28) & 0x0f

	quantityPercent = int(packed >> 16 & 0xff)
	if quantityPercent >= 0x80 {
		quantityPercent -= 0x100
	}

	sellPricePercent = int(packed & 0xffff)
	if sellPricePercent >= 0x8000 {
		sellPricePercent -= 0x10000
	}
	return direction, rarity, quantityPercent, sellPricePercent
}
