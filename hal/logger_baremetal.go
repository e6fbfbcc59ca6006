//go:build tinygo && baremetal

package hal

import "machine"

// SerialLogger writes log lines to the default serial output, CRLF
// terminated.
type SerialLogger struct{}

func NewSerialLogger() SerialLogger { return SerialLogger{} }

func (SerialLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		machine.Serial.WriteByte(s[i])
	}
	machine.Serial.WriteByte('\r')
	machine.Serial.WriteByte('\n')
}

func (SerialLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		machine.Serial.WriteByte(b[i])
	}
	machine.Serial.WriteByte('\r')
	machine.Serial.WriteByte('\n')
}
