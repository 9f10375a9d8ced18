package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Timeout, Timeout},
		{"wrapped code", fmt.Errorf("read: %w", SensorReadFailed), SensorReadFailed},
		{"E", &E{C: Unauthorized}, Unauthorized},
		{"wrapped E", fmt.Errorf("boot: %w", Wrap(RadioUnavailable, "advertise", errors.New("hci down"))), RadioUnavailable},
		{"foreign", errors.New("boom"), Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(Wrap(SensorUnavailable, "ina228", nil)) {
		t.Fatal("sensor_unavailable should be fatal")
	}
	if IsFatal(SensorReadFailed) {
		t.Fatal("sensor_read_failed should not be fatal")
	}
	if IsFatal(nil) {
		t.Fatal("nil is not fatal")
	}
}

func TestEError(t *testing.T) {
	cause := errors.New("nack")
	e := &E{C: SensorReadFailed, Op: "vbus", Err: cause}
	if got := e.Error(); got != "vbus: sensor_read_failed: nack" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(e, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
}
