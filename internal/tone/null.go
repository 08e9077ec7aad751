package tone

// Null is an output that goes nowhere, for machines without a buzzer.
type Null struct{}

func (Null) Tone(pin uint8, freq, durr uint16) {}
func (Null) NoTone(pin uint8)                  {}
