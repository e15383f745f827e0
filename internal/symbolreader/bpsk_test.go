package symbolreader

import "testing"

func TestDemodulateSoftSaturatesAtExtremes(t *testing.T) {
	d := NewBpskDemod()

	hard, soft := d.DemodulateSoft(complex(2.5, 0))
	if !hard || soft != 255 {
		t.Errorf("DemodulateSoft(2.5+0i) = (%v, %d), want (true, 255)", hard, soft)
	}

	hard, soft = d.DemodulateSoft(complex(-2.5, 0))
	if hard || soft != 0 {
		t.Errorf("DemodulateSoft(-2.5+0i) = (%v, %d), want (false, 0)", hard, soft)
	}
}

func TestDemodulateSoftMidpointAtOrigin(t *testing.T) {
	d := NewBpskDemod()
	hard, soft := d.DemodulateSoft(complex(0, 0))
	if !hard {
		t.Errorf("DemodulateSoft(0) hard bit = false, want true (>= 0 decision boundary)")
	}
	if soft != 128 {
		t.Errorf("DemodulateSoft(0) soft = %d, want 128", soft)
	}
}

func TestEVMAccumulatesAndResets(t *testing.T) {
	d := NewBpskDemod()
	d.DemodulateSoft(complex(1, 0)) // ideal, zero EVM contribution
	if got := d.EVM(); got != 0 {
		t.Errorf("EVM() after a perfect symbol = %v, want 0", got)
	}

	d.DemodulateSoft(complex(1, 1)) // off the ideal point, adds EVM
	if got := d.EVM(); got <= 0 {
		t.Errorf("EVM() after an off-ideal symbol = %v, want > 0", got)
	}

	d.Reset()
	if got := d.EVM(); got != 0 {
		t.Errorf("EVM() after Reset = %v, want 0", got)
	}
}
