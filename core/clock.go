package core

// Standard bus frequencies
const (
	FrequencyStandard = 100000  // Standard mode
	FrequencyFast     = 400000  // Fast mode
	FrequencyFastPlus = 1000000 // Fast mode plus
)

// riseTimeNS returns the SCL rise time budget for a bus profile.
// Unknown frequencies use the standard-mode budget.
func riseTimeNS(frequencyHz uint32) uint32 {
	switch frequencyHz {
	case FrequencyFast:
		return 300
	case FrequencyFastPlus:
		return 120
	default:
		return 1000
	}
}

// ComputeDivisor returns the MBAUD value for frequencyHz given the
// peripheral clock:
//
//	baud = (fper/f - (fper/1MHz)*trise/1000 - 10) / 2
//
// The result saturates at the register range. A zero frequency selects
// standard mode.
func ComputeDivisor(peripheralHz, frequencyHz uint32) uint8 {
	if frequencyHz == 0 {
		frequencyHz = FrequencyStandard
	}
	rise := (int64(peripheralHz) / 1000000) * int64(riseTimeNS(frequencyHz)) / 1000
	baud := (int64(peripheralHz)/int64(frequencyHz) - rise - 10) / 2
	if baud < 0 {
		return 0
	}
	if baud > 0xFF {
		return 0xFF
	}
	return uint8(baud)
}
