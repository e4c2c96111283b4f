package devicestate

// ParameterCodec converts between a human-meaningful value (dB for a
// fader, a boolean for a mute) and the normalized 0.0-1.0 float a
// device's OSC vocabulary expects. spec.md §9's Open Question on the
// dB-to-normalized mapping is resolved by making this pluggable rather
// than hardcoding one device's scale (see DESIGN.md).
type ParameterCodec interface {
	EncodeFloat(dB float32) float32
	DecodeFloat(normalized float32) float32
}

// GenericOSC is the identity codec: values pass through unchanged,
// for devices whose OSC vocabulary already uses normalized floats
// directly (config.DeviceTypeGenericOSC).
type GenericOSC struct{}

func (GenericOSC) EncodeFloat(v float32) float32 { return v }
func (GenericOSC) DecodeFloat(v float32) float32 { return v }

// RmeTotalMix maps dB to TotalMix FX's normalized fader range. The
// reference implementation disagreed internally between a /71 and a
// /65 divisor (RmeOscController.cpp vs RmeOscCommands.cpp); this
// module picks /65, matching RmeOscCommands.cpp's own comment that
// "RME's volume scale is approximately -65dB to 0dB" (see DESIGN.md
// for the full resolution).
type RmeTotalMix struct{}

const (
	rmeMinDB = -65.0
	rmeMaxDB = 0.0
	rmeSpan  = rmeMaxDB - rmeMinDB
)

func (RmeTotalMix) EncodeFloat(dB float32) float32 {
	if dB < rmeMinDB {
		dB = rmeMinDB
	}
	if dB > rmeMaxDB {
		dB = rmeMaxDB
	}
	return (dB - rmeMinDB) / rmeSpan
}

func (RmeTotalMix) DecodeFloat(normalized float32) float32 {
	return normalized*rmeSpan + rmeMinDB
}
