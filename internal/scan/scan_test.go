package scan

import "testing"

// TestScannerInterfaceSatisfiedByMock is a compile-time-ish guard that the
// concrete scanners in this package actually implement Scanner.
func TestScannerInterfaceSatisfiedByMock(t *testing.T) {
	var _ Scanner = (*MockScanner)(nil)
	var _ Scanner = (*SerialScanner)(nil)
	var _ Scanner = (*PCAPScanner)(nil)
	var _ Scanner = (*Guard)(nil)
}
